package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
)

// Keys
const (
	KeyFeeMap             = "feeMap"
	KeyPromotionDate      = "promotionDate"
	KeyPrincipalSignature = "principalSignature"
)

var (
	Keys = []string{KeyFeeMap, KeyPromotionDate, KeyPrincipalSignature}

	// ErrNotFound is returned by a Repository for a key that was never written.
	ErrNotFound   = errors.New("setting not found")
	ErrUnknownKey = errors.New("unknown setting")
)

// FeeMap is the monthly tuition amount per class.
type FeeMap map[string]float64

type (
	// Repository stores raw setting values; at most one value per key.
	Repository interface {
		GetSetting(ctx context.Context, key string) ([]byte, error)
		PutSetting(ctx context.Context, key string, value []byte) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func IsValidKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the typed value stored at key or its default:
// FeeMap{} for feeMap, "" for promotionDate and nil for principalSignature.
func (svc *Service) Get(ctx context.Context, key string) (interface{}, error) {
	switch key {
	case KeyFeeMap:
		return svc.FeeMap(ctx)
	case KeyPromotionDate:
		return svc.PromotionDate(ctx)
	case KeyPrincipalSignature:
		return svc.PrincipalSignature(ctx)
	default:
		return nil, unknownKeyErr(key)
	}
}

// Put writes value at key. value must have the key's type.
func (svc *Service) Put(ctx context.Context, key string, value interface{}) error {
	switch key {
	case KeyFeeMap:
		fm, ok := value.(FeeMap)
		if !ok {
			if m, isMap := value.(map[string]float64); isMap {
				fm, ok = FeeMap(m), true
			}
		}
		if !ok {
			return invalidValueErr(key, value)
		}
		return svc.PutFeeMap(ctx, fm)
	case KeyPromotionDate:
		date, ok := value.(string)
		if !ok {
			return invalidValueErr(key, value)
		}
		return svc.PutPromotionDate(ctx, date)
	case KeyPrincipalSignature:
		switch sig := value.(type) {
		case []byte:
			return svc.PutPrincipalSignature(ctx, sig)
		case string:
			return svc.PutPrincipalSignature(ctx, []byte(sig))
		case nil:
			return svc.PutPrincipalSignature(ctx, nil)
		}
		return invalidValueErr(key, value)
	default:
		return unknownKeyErr(key)
	}
}

func (svc *Service) FeeMap(ctx context.Context) (FeeMap, error) {
	fm := make(FeeMap)
	raw, err := svc.get(ctx, KeyFeeMap)
	if err != nil || raw == nil {
		return fm, err
	}
	if err = json.Unmarshal(raw, &fm); err != nil {
		return nil, errors.Wrap(err, "decoding fee map")
	}
	return fm, nil
}

func (svc *Service) PutFeeMap(ctx context.Context, fm FeeMap) error {
	for class, fee := range fm {
		if core.CleanString(class) == "" || fee < 0 {
			return core.NewValidationError(
				errors.New("invalid fee map"),
				core.FieldError{Field: KeyFeeMap, Error: fmt.Sprintf("invalid fee %v for class %q", fee, class)},
			)
		}
	}
	if fm == nil {
		fm = make(FeeMap)
	}
	raw, err := json.Marshal(fm)
	if err != nil {
		return errors.Wrap(err, "encoding fee map")
	}
	return svc.repo.PutSetting(ctx, KeyFeeMap, raw)
}

func (svc *Service) PromotionDate(ctx context.Context) (string, error) {
	raw, err := svc.get(ctx, KeyPromotionDate)
	if err != nil || raw == nil {
		return "", err
	}
	var date string
	if err = json.Unmarshal(raw, &date); err != nil {
		return "", errors.Wrap(err, "decoding promotion date")
	}
	return date, nil
}

// PutPromotionDate stores an ISO date (YYYY-MM-DD); an empty date resets it.
func (svc *Service) PutPromotionDate(ctx context.Context, date string) error {
	date = core.CleanString(date)
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return core.NewValidationError(
				errors.Wrap(err, "invalid promotion date"),
				core.FieldError{Field: KeyPromotionDate, Error: "date must be formatted as YYYY-MM-DD"},
			)
		}
	}
	raw, err := json.Marshal(date)
	if err != nil {
		return errors.Wrap(err, "encoding promotion date")
	}
	return svc.repo.PutSetting(ctx, KeyPromotionDate, raw)
}

// PrincipalSignature returns the raw signature asset (image bytes or an URL), nil if unset.
func (svc *Service) PrincipalSignature(ctx context.Context) ([]byte, error) {
	raw, err := svc.get(ctx, KeyPrincipalSignature)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	return raw, nil
}

func (svc *Service) PutPrincipalSignature(ctx context.Context, sig []byte) error {
	return svc.repo.PutSetting(ctx, KeyPrincipalSignature, sig)
}

// get returns nil, nil for unset keys
func (svc *Service) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := svc.repo.GetSetting(ctx, key)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

func unknownKeyErr(key string) error {
	return core.NewValidationError(
		errors.Wrap(ErrUnknownKey, key),
		core.FieldError{Field: "key", Error: fmt.Sprintf("unknown setting %q", key)},
	)
}

func invalidValueErr(key string, value interface{}) error {
	return core.NewValidationError(
		errors.Errorf("invalid value for %s: %T", key, value),
		core.FieldError{Field: key, Error: "invalid value"},
	)
}
