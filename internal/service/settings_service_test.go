package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baburchi-admin/internal/model"
	"baburchi-admin/pkg/validator"
)

func TestCourierConfig_DefaultsMaskingAndMerge(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	cfg, err := f.settings.GetCourierConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCourierBaseURL, cfg.BaseURL)
	assert.False(t, cfg.IsConfigured())

	masked, err := f.settings.UpdateCourierConfig(ctx, admin, model.CourierConfig{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   "https://courier.test/api/v1/",
	})
	require.NoError(t, err)
	assert.Equal(t, "********", masked.SecretKey)
	assert.Equal(t, "https://courier.test/api/v1", masked.BaseURL)

	// echoing the masked secret keeps the stored one
	_, err = f.settings.UpdateCourierConfig(ctx, admin, model.CourierConfig{
		APIKey:    "key2",
		SecretKey: "********",
		BaseURL:   "https://courier.test/api/v1",
	})
	require.NoError(t, err)

	raw, err := f.settings.CourierConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key2", raw.APIKey)
	assert.Equal(t, "secret", raw.SecretKey)

	_, err = f.settings.UpdateCourierConfig(ctx, admin, model.CourierConfig{BaseURL: "not a url"})
	assert.ErrorIs(t, err, validator.ErrValidation)

	_, err = f.settings.UpdateCourierConfig(ctx, rahim, model.CourierConfig{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLogo(t *testing.T) {
	f := newFixture(t, OrderOptions{})
	ctx := context.Background()

	logo, err := f.settings.GetLogo(ctx)
	require.NoError(t, err)
	assert.Empty(t, logo)

	const png = "data:image/png;base64,iVBORw0KGgo="
	ref, err := f.settings.UpdateLogo(ctx, admin, png)
	require.NoError(t, err)
	assert.Equal(t, png, ref)

	logo, err = f.settings.GetLogo(ctx)
	require.NoError(t, err)
	assert.Equal(t, png, logo)

	_, err = f.settings.UpdateLogo(ctx, admin, "http://example.com/logo.png")
	assert.ErrorIs(t, err, validator.ErrValidation)

	require.NoError(t, f.settings.RemoveLogo(ctx, admin))
	logo, err = f.settings.GetLogo(ctx)
	require.NoError(t, err)
	assert.Empty(t, logo)
}
