package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/vehicle-rental/internal/booking"
	"github.com/iliyamo/vehicle-rental/internal/catalog"
	"github.com/iliyamo/vehicle-rental/internal/model"
)

// VehicleRepo provides catalog queries over the vehicles table.
type VehicleRepo struct{ DB *sql.DB }

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{DB: db} }

const vehicleCols = `id, brand, model, year, vehicle_type, capacity, plate, color,
	price_per_day, price_per_hour, description, image_url, status, is_active, created_at, updated_at`

func scanVehicle(s rowScanner) (model.Vehicle, error) {
	var (
		v        model.Vehicle
		plate    sql.NullString
		color    sql.NullString
		perHour  decimal.NullDecimal
		desc     sql.NullString
		imageURL sql.NullString
	)
	err := s.Scan(&v.ID, &v.Brand, &v.Model, &v.Year, &v.VehicleType, &v.Capacity, &plate, &color,
		&v.PricePerDay, &perHour, &desc, &imageURL, &v.Status, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return model.Vehicle{}, err
	}
	v.Plate = plate.String
	v.Color = color.String
	v.Description = desc.String
	v.ImageURL = imageURL.String
	if perHour.Valid {
		d := perHour.Decimal
		v.PricePerHour = &d
	}
	return v, nil
}

func getVehicle(ctx context.Context, q dbtx, id uint64) (model.Vehicle, error) {
	v, err := scanVehicle(q.QueryRowContext(ctx, "SELECT "+vehicleCols+" FROM vehicles WHERE id = ?", id))
	if err != nil {
		return model.Vehicle{}, notFound(err)
	}
	return v, nil
}

// Vehicle fetches a vehicle by id regardless of is_active.
func (r *VehicleRepo) Vehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
	return getVehicle(ctx, r.DB, id)
}

// vehicleWhere builds the WHERE clause shared by the list and count queries.
func vehicleWhere(f catalog.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.IncludeInactive {
		conds = append(conds, "is_active = 1")
	}
	if f.VehicleType != "" {
		conds = append(conds, "vehicle_type = ?")
		args = append(args, strings.ToLower(f.VehicleType))
	}
	if f.MinCapacity > 0 {
		conds = append(conds, "capacity >= ?")
		args = append(args, f.MinCapacity)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price_per_day <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.OnlyAvailable {
		conds = append(conds, "status = ?")
		args = append(args, model.VehicleAvailable)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListVehicles returns a page of vehicles ordered by daily price and the
// total number of matches.
func (r *VehicleRepo) ListVehicles(ctx context.Context, f catalog.Filter) ([]model.Vehicle, int, error) {
	where, args := vehicleWhere(f)

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + vehicleCols + " FROM vehicles" + where + " ORDER BY price_per_day ASC, id ASC LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Limit, f.Skip)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// VehicleTypes lists the distinct types among active vehicles.
func (r *VehicleRepo) VehicleTypes(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT DISTINCT vehicle_type FROM vehicles WHERE is_active = 1 ORDER BY vehicle_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertVehicle stores v and sets its ID.  A duplicate plate is reported as
// a booking conflict.
func (r *VehicleRepo) InsertVehicle(ctx context.Context, v *model.Vehicle) error {
	const q = `INSERT INTO vehicles (brand, model, year, vehicle_type, capacity, plate, color,
		price_per_day, price_per_hour, description, image_url, status, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var perHour decimal.NullDecimal
	if v.PricePerHour != nil {
		perHour = decimal.NewNullDecimal(*v.PricePerHour)
	}
	res, err := r.DB.ExecContext(ctx, q, v.Brand, v.Model, v.Year, v.VehicleType, v.Capacity, nullString(v.Plate), v.Color,
		v.PricePerDay, perHour, v.Description, v.ImageURL, v.Status, v.IsActive, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return booking.Conflict("a vehicle with this plate already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// UpdateVehicle writes the admin-editable fields of v.
func (r *VehicleRepo) UpdateVehicle(ctx context.Context, v *model.Vehicle) error {
	const q = `UPDATE vehicles SET status = ?, is_active = ?, price_per_day = ?, updated_at = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, q, v.Status, v.IsActive, v.PricePerDay, v.UpdatedAt, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero affected rows when nothing changed, so confirm
		// the row exists before calling it missing.
		if _, err := getVehicle(ctx, r.DB, v.ID); err != nil {
			return err
		}
	}
	return nil
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
