package settings_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/storage/database/inmem"
)

func newService(t *testing.T) *settings.Service {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	return settings.NewService(inmemdb.NewSettingsRepository(db))
}

func TestService_defaults(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	fm, err := svc.FeeMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.FeeMap{}, fm)

	date, err := svc.PromotionDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", date)

	sig, err := svc.PrincipalSignature(ctx)
	require.NoError(t, err)
	assert.Nil(t, sig)

	for _, key := range settings.Keys {
		_, err = svc.Get(ctx, key)
		assert.NoError(t, err, key)
	}
}

func TestService_PutGet(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	require.NoError(t, svc.Put(ctx, settings.KeyFeeMap, map[string]float64{"5": 200, "6": 250.5}))
	v, err := svc.Get(ctx, settings.KeyFeeMap)
	require.NoError(t, err)
	assert.Equal(t, settings.FeeMap{"5": 200, "6": 250.5}, v)

	require.NoError(t, svc.Put(ctx, settings.KeyPromotionDate, " 2025-04-01 "))
	v, err = svc.Get(ctx, settings.KeyPromotionDate)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01", v)

	require.NoError(t, svc.Put(ctx, settings.KeyPrincipalSignature, []byte{0x89, 'P', 'N', 'G'}))
	v, err = svc.Get(ctx, settings.KeyPrincipalSignature)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, v)

	// resets
	require.NoError(t, svc.Put(ctx, settings.KeyPromotionDate, ""))
	require.NoError(t, svc.Put(ctx, settings.KeyPrincipalSignature, nil))
	date, err := svc.PromotionDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", date)
	sig, err := svc.PrincipalSignature(ctx)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestService_invalid(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	fieldErr := func(t *testing.T, err error) core.FieldError {
		t.Helper()
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "%v is not a validation error", err)
		require.Len(t, vErr.Fields, 1)
		return vErr.Fields[0]
	}

	tests := []struct {
		name  string
		key   string
		value interface{}
		want  core.FieldError
	}{
		{name: "unknown key", key: "theme", value: "dark", want: core.FieldError{Field: "key", Error: `unknown setting "theme"`}},
		{name: "fee map type", key: settings.KeyFeeMap, value: "200", want: core.FieldError{Field: settings.KeyFeeMap, Error: "invalid value"}},
		{
			name: "negative fee", key: settings.KeyFeeMap, value: settings.FeeMap{"5": -10},
			want: core.FieldError{Field: settings.KeyFeeMap, Error: `invalid fee -10 for class "5"`},
		},
		{
			name: "blank class", key: settings.KeyFeeMap, value: settings.FeeMap{" ": 10},
			want: core.FieldError{Field: settings.KeyFeeMap, Error: `invalid fee 10 for class " "`},
		},
		{
			name: "bad date", key: settings.KeyPromotionDate, value: "2025-13-01",
			want: core.FieldError{Field: settings.KeyPromotionDate, Error: "date must be formatted as YYYY-MM-DD"},
		},
		{name: "date type", key: settings.KeyPromotionDate, value: 2025, want: core.FieldError{Field: settings.KeyPromotionDate, Error: "invalid value"}},
		{name: "signature type", key: settings.KeyPrincipalSignature, value: 42, want: core.FieldError{Field: settings.KeyPrincipalSignature, Error: "invalid value"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Put(ctx, tt.key, tt.value)
			require.Error(t, err)
			assert.Equal(t, tt.want, fieldErr(t, err))
		})
	}

	_, err := svc.Get(ctx, "theme")
	assert.Equal(t, settings.ErrUnknownKey, errors.Cause(errors.Cause(err).(*core.ValidationError).Err))

	// nothing was written
	fm, err := svc.FeeMap(ctx)
	require.NoError(t, err)
	assert.Empty(t, fm)
}

func TestIsValidKey(t *testing.T) {
	assert.True(t, settings.IsValidKey("feeMap"))
	assert.True(t, settings.IsValidKey("promotionDate"))
	assert.True(t, settings.IsValidKey("principalSignature"))
	assert.False(t, settings.IsValidKey("FeeMap"))
	assert.False(t, settings.IsValidKey(""))
}
