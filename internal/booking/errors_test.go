package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("vehicle not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "vehicle not found", MessageOf(err))

	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, "", MessageOf(errors.New("boom")))
	assert.Equal(t, "conflict", MessageOf(ErrConflict))

	wrapped := &Error{Kind: KindValidation, Message: "bad", Err: errors.New("cause")}
	assert.EqualError(t, wrapped, "validation: bad: cause")
	assert.ErrorIs(t, wrapped, ErrValidation)
}

func TestCanTransition(t *testing.T) {
	allowed := map[string][]string{
		model.StatusPending:    {model.StatusConfirmed, model.StatusCancelled},
		model.StatusConfirmed:  {model.StatusInProgress, model.StatusCancelled},
		model.StatusInProgress: {model.StatusCompleted, model.StatusCancelled},
	}
	for _, from := range model.ReservationStatuses {
		for _, to := range model.ReservationStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equalf(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, IsTerminal(model.StatusCompleted))
	assert.True(t, IsTerminal(model.StatusCancelled))
	assert.False(t, IsTerminal(model.StatusInProgress))
}

func TestParseFolio(t *testing.T) {
	cases := map[string]uint64{
		"VT-0001":  1,
		"vt-0042":  42,
		" 17 ":     17,
		"VT-12345": 12345,
	}
	for in, want := range cases {
		got, err := ParseFolio(in)
		assert.NoErrorf(t, err, "folio %q", in)
		assert.Equalf(t, want, got, "folio %q", in)
	}
	for _, bad := range []string{"", "VT-", "VT-abc", "XX-0001", "0", "VT-00000000001", "12a"} {
		_, err := ParseFolio(bad)
		assert.ErrorIsf(t, err, ErrValidation, "folio %q", bad)
	}
	assert.Equal(t, "VT-0042", model.Folio(42))
}
