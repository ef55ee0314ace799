package validation

import (
	"testing"

	"github.com/Domenick1991/tripbooking/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type request struct {
	Contact contact `json:"contact"`
	Guests  int     `json:"guests" validate:"min=1,max=20"`
	Status  string  `json:"status" validate:"omitempty,oneof=confirmed cancelled"`
}

func TestStruct_ReportsEveryField(t *testing.T) {
	v := New()
	err := Struct(v, request{Contact: contact{Email: "nope"}, Guests: 21, Status: "lost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.ElementsMatch(t, []string{
		"contact.name is required",
		"contact.email must be a valid email address",
		"guests must be at most 20",
		"status must be one of [confirmed cancelled]",
	}, apperror.MessagesOf(err))
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	assert.NoError(t, Struct(v, request{Contact: contact{Name: "Ann", Email: "ann@example.com"}, Guests: 2}))
}
