package storefront

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/repositorycache"
)

// NewAddress is the input of AddAddress.
type NewAddress struct {
	UserID     string `json:"user_id"`
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	IsDefault  bool   `json:"is_default"`
}

func (a NewAddress) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.UserID, validation.Required),
		validation.Field(&a.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.Line1, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.City, validation.Required),
		validation.Field(&a.PostalCode, validation.Required, validation.Length(1, 20)),
		validation.Field(&a.Country, validation.Required, validation.Length(2, 2)),
	)
}

// AddressUpdate holds the fields to change; nil fields are left alone.
type AddressUpdate struct {
	FullName   *string `json:"full_name"`
	Line1      *string `json:"line1"`
	Line2      *string `json:"line2"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
	Phone      *string `json:"phone"`
	IsDefault  *bool   `json:"is_default"`
}

func (u AddressUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.FullName, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.Line1, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.City, validation.NilOrNotEmpty),
		validation.Field(&u.PostalCode, validation.NilOrNotEmpty, validation.Length(1, 20)),
		validation.Field(&u.Country, validation.NilOrNotEmpty, validation.Length(2, 2)),
	)
}

// GetAddresses lists the user's addresses, default first. Cached under
// AddressesKey(userID).
func (s *Service) GetAddresses(ctx context.Context, userID string) ([]*Address, error) {
	if err := invalid(userOnly(userID), "invalid address lookup"); err != nil {
		return nil, err
	}

	ctx = repositorycache.WithCacheKey(ctx, AddressesKey(userID))
	addresses, _, err := s.addresses.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		orderBy("is_default", true),
		orderBy("created_at", false),
		orderBy("id", false),
		unpaged,
	)
	return addresses, err
}

// GetAddressByID returns one address, cached under AddressKey(id).
func (s *Service) GetAddressByID(ctx context.Context, id string) (*Address, error) {
	return s.addresses.GetByID(ctx, id)
}

// AddAddress stores a new address. The first address of a user, or one
// flagged IsDefault, becomes the only default.
func (s *Service) AddAddress(ctx context.Context, in NewAddress) (*Address, error) {
	if err := invalid(in.Validate(), "invalid address"); err != nil {
		return nil, err
	}

	var address *Address
	err := s.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.addresses.CountTx(ctx, tx, repository.SelectBy("user_id", "=", in.UserID))
		if err != nil {
			return err
		}

		isDefault := in.IsDefault || existing == 0
		if isDefault && existing > 0 {
			if err := s.clearDefault(ctx, tx, in.UserID); err != nil {
				return err
			}
		}

		address, err = s.addresses.CreateTx(ctx, tx, &Address{
			UserID:     in.UserID,
			FullName:   in.FullName,
			Line1:      in.Line1,
			Line2:      in.Line2,
			City:       in.City,
			State:      in.State,
			PostalCode: in.PostalCode,
			Country:    in.Country,
			Phone:      in.Phone,
			IsDefault:  isDefault,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dropKeys(ctx, AddressesKey(in.UserID))
	return address, nil
}

// UpdateAddress applies update and returns the stored address.
func (s *Service) UpdateAddress(ctx context.Context, id string, update AddressUpdate) (*Address, error) {
	if err := invalid(update.Validate(), "invalid address update"); err != nil {
		return nil, err
	}

	var address *Address
	err := s.tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := s.addresses.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		set := newChanges()
		text := func(column string, value *string) {
			if value != nil {
				set = set.set(column, *value)
			}
		}
		text("full_name", update.FullName)
		text("line1", update.Line1)
		text("line2", update.Line2)
		text("city", update.City)
		text("state", update.State)
		text("postal_code", update.PostalCode)
		text("country", update.Country)
		text("phone", update.Phone)

		if update.IsDefault != nil {
			if *update.IsDefault && !current.IsDefault {
				if err := s.clearDefault(ctx, tx, current.UserID); err != nil {
					return err
				}
			}
			set = set.set("is_default", *update.IsDefault)
		}

		address, err = s.addresses.UpdateTx(ctx, tx, current, set...)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dropKeys(ctx, AddressKey(id), AddressesKey(address.UserID))
	s.dropTags(ctx, s.addresses.ListTag())
	return address, nil
}

// DeleteAddress removes an address. A missing address is NO_DATA; an
// address used by an order is a store error.
func (s *Service) DeleteAddress(ctx context.Context, id string) error {
	address, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.addresses.Delete(ctx, address); err != nil {
		return err
	}

	s.dropKeys(ctx, AddressesKey(address.UserID))
	return nil
}

// clearDefault unsets the user's current default. Each row is updated on
// its own so its cached copy is dropped with it.
func (s *Service) clearDefault(ctx context.Context, tx bun.IDB, userID string) error {
	defaults, _, err := s.addresses.ListTx(ctx, tx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_default = ?", true)
		}),
		unpaged,
	)
	if err != nil {
		return err
	}

	for _, address := range defaults {
		if _, err := s.addresses.UpdateTx(ctx, tx, address, newChanges().set("is_default", false)...); err != nil {
			return err
		}
	}
	return nil
}
