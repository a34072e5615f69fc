package render_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/http/render"
	"github.com/MrJamesThe3rd/condo/internal/importer"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title is required", ledger.ErrInvalid), http.StatusBadRequest},
		{importer.ErrUnknownFormat, http.StatusBadRequest},
		{actor.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("%w: nope", actor.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("get request: %w", ledger.ErrNotFound), http.StatusNotFound},
		{ledger.ErrInvalidTransition, http.StatusConflict},
		{ledger.ErrVersionConflict, http.StatusConflict},
		{lifecycle.ErrRecipientRequired, http.StatusUnprocessableEntity},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, render.Status(tt.err))
		})
	}
}
