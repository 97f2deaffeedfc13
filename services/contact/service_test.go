package contact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories/memory"
	"github.com/upb/contact-directory/services"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(memory.NewStore().Repositories().Contacts, zap.NewNop())
}

func TestService_CreateGetList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	first, err := svc.Create(ctx, &models.ContactInput{FirstName: "Ada", CompanyName: "Analytical"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "N", first.EscalationContact)

	second, err := svc.Create(ctx, &models.ContactInput{FirstName: "Grace", EscalationContact: "Y"})
	require.NoError(t, err)
	assert.True(t, second.IsEscalation())

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
}

func TestService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	c, err := svc.Create(ctx, &models.ContactInput{FirstName: "Ada", LastName: "King"})
	require.NoError(t, err)

	last := "Lovelace"
	updated, err := svc.Update(ctx, c.ID, &models.ContactPatch{LastName: &last})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)

	require.NoError(t, svc.Delete(ctx, c.ID))

	_, err = svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, services.ErrContactNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, c.ID), services.ErrContactNotFound)
	_, err = svc.Update(ctx, c.ID, &models.ContactPatch{LastName: &last})
	assert.True(t, services.IsNotFoundError(err))
}
