package sendgrid_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/szhangbiao/mailsend/internal/core"
	"github.com/szhangbiao/mailsend/internal/providers/sendgrid"
)

func TestNewProviderValidation(t *testing.T) {
	t.Parallel()

	_, err := sendgrid.NewProvider(core.ProviderSettings{"from": "noreply@example.com"})
	var validationErr *core.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "api_key", validationErr.Field)

	_, err = sendgrid.NewProvider(core.ProviderSettings{"api_key": "SG.test"})
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "from", validationErr.Field)
}

func TestProviderName(t *testing.T) {
	t.Parallel()

	p, err := sendgrid.NewProvider(core.ProviderSettings{
		"api_key": "SG.test",
		"from":    "noreply@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "sendgrid", p.Name())
	require.NoError(t, p.ValidateConfig())
}

func TestGetMessageUnsupported(t *testing.T) {
	t.Parallel()

	p, err := sendgrid.NewProvider(core.ProviderSettings{
		"api_key": "SG.test",
		"from":    "noreply@example.com",
	})
	require.NoError(t, err)

	_, err = p.GetMessage(context.Background(), "msg-1")
	var unsupportedErr *core.UnsupportedOperationError
	require.True(t, errors.As(err, &unsupportedErr))
	require.Equal(t, "sendgrid", unsupportedErr.Provider)
}
