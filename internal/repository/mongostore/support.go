package mongostore

import (
	"context"

	"github.com/iliyamo/vehicle-rental/internal/model"
)

// InsertTicket stores t and sets its ID.
func (s *Store) InsertTicket(ctx context.Context, t *model.SupportTicket) error {
	id, err := s.nextID(ctx, colTickets)
	if err != nil {
		return err
	}
	t.ID = id
	_, err = s.db.Collection(colTickets).InsertOne(ctx, newTicketDoc(*t))
	return err
}
