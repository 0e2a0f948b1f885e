package hierarchy

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*common_models.User, error)
}

// Validator enforces the placement rules of the delegation tree.
type Validator struct {
	Users UserFinder
}

func NewValidator(users UserFinder) *Validator {
	return &Validator{Users: users}
}

// Validate checks u's references against its user type. When a user names
// only a dealer, the dealer's main dealer is copied onto u.
func (v *Validator) Validate(ctx context.Context, u *common_models.User) error {
	if !u.UserType.Valid() {
		return apperrors.Validation("invalid user_type %q", u.UserType)
	}
	if u.UserType == common_models.UserTypeCustom {
		if u.CustomRoleRef == nil {
			return apperrors.Validation("custom_role_ref is required for custom users")
		}
	} else if u.CustomRoleRef != nil {
		return apperrors.Validation("custom_role_ref is only allowed for custom users")
	}

	switch u.UserType {
	case common_models.UserTypeSuperAdmin, common_models.UserTypeMainDealer, common_models.UserTypeCustom:
		if u.MainDealerRef != nil || u.DealerRef != nil {
			return apperrors.Validation("%s users cannot have main_dealer_ref or dealer_ref", u.UserType)
		}
		return nil

	case common_models.UserTypeDealer:
		if u.DealerRef != nil {
			return apperrors.Validation("dealer users cannot have dealer_ref")
		}
		if u.MainDealerRef == nil {
			return apperrors.Validation("main_dealer_ref is required for dealer users")
		}
		_, err := v.expect(ctx, *u.MainDealerRef, common_models.UserTypeMainDealer, "main_dealer_ref")
		return err

	case common_models.UserTypeUser:
		if u.MainDealerRef != nil {
			if _, err := v.expect(ctx, *u.MainDealerRef, common_models.UserTypeMainDealer, "main_dealer_ref"); err != nil {
				return err
			}
		}
		if u.DealerRef == nil {
			return nil
		}
		dealer, err := v.expect(ctx, *u.DealerRef, common_models.UserTypeDealer, "dealer_ref")
		if err != nil {
			return err
		}
		if dealer.MainDealerRef == nil {
			return apperrors.Validation("dealer %s has no main dealer", dealer.ID.Hex())
		}
		if u.MainDealerRef == nil {
			inherited := *dealer.MainDealerRef
			u.MainDealerRef = &inherited
			return nil
		}
		if *u.MainDealerRef != *dealer.MainDealerRef {
			return apperrors.Validation("dealer %s does not belong to main dealer %s", dealer.ID.Hex(), u.MainDealerRef.Hex())
		}
	}
	return nil
}

func (v *Validator) expect(ctx context.Context, id primitive.ObjectID, want common_models.UserType, field string) (*common_models.User, error) {
	ref, err := v.Users.FindByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound(field, id.Hex())
		}
		return nil, err
	}
	if ref.UserType != want {
		return nil, apperrors.Validation("%s must reference a %s, got %s", field, want, ref.UserType)
	}
	return ref, nil
}
