package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsTypedErrors(t *testing.T) {
	orig := Conflictf("Masa dolu")
	wrapped := Wrap(fmt.Errorf("tx: %w", orig), "")

	assert.True(t, Is(wrapped, Conflict))
	assert.Equal(t, Conflict, KindOf(wrapped))
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, "")

	assert.Equal(t, Internal, KindOf(err))
	assert.ErrorIs(t, err, cause)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, GenericMessage, ae.Message)
}

func TestFiberMapsKindsToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{Validationf("Kapasite 1 ile %d arasında olmalıdır.", 20), fiber.StatusBadRequest, "Kapasite 1 ile 20 arasında olmalıdır."},
		{NotFoundf("Masa bulunamadı."), fiber.StatusNotFound, "Masa bulunamadı."},
		{Conflictf("Bu adisyon zaten kapatılmış."), fiber.StatusConflict, "Bu adisyon zaten kapatılmış."},
		{New(Forbidden, "Yetkisiz"), fiber.StatusForbidden, "Yetkisiz"},
		{errors.New("boom"), fiber.StatusInternalServerError, GenericMessage},
	}

	for _, tc := range cases {
		var fe *fiber.Error
		require.ErrorAs(t, Fiber(tc.err), &fe)
		assert.Equal(t, tc.code, fe.Code)
		assert.Equal(t, tc.msg, fe.Message)
	}
	assert.Nil(t, Fiber(nil))
}
