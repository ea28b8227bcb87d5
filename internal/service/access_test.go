package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rensmac/taskboard/internal/domain"
)

func TestAccessService_VerifyAccess(t *testing.T) {
	ctx := context.Background()
	room := domain.NewRoomKey("acme", "BLIB-3")

	t.Run("member with existing task", func(t *testing.T) {
		mockOrgRepo := new(MockOrganizationRepository)
		mockTaskRepo := new(MockTaskRepository)
		svc := NewAccessService(mockOrgRepo, mockTaskRepo)

		mockOrgRepo.On("IsMember", ctx, int64(1), "acme").Return(true, nil)
		mockTaskRepo.On("GetByReference", ctx, "acme", "BLIB-3").Return(testTask(), nil)

		allowed, err := svc.VerifyAccess(ctx, 1, room)
		assert.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("not a member", func(t *testing.T) {
		mockOrgRepo := new(MockOrganizationRepository)
		mockTaskRepo := new(MockTaskRepository)
		svc := NewAccessService(mockOrgRepo, mockTaskRepo)

		mockOrgRepo.On("IsMember", ctx, int64(1), "acme").Return(false, nil)

		allowed, err := svc.VerifyAccess(ctx, 1, room)
		assert.NoError(t, err)
		assert.False(t, allowed)
		// Task lookup is skipped once membership fails
		mockTaskRepo.AssertNotCalled(t, "GetByReference")
	})

	t.Run("task does not exist", func(t *testing.T) {
		mockOrgRepo := new(MockOrganizationRepository)
		mockTaskRepo := new(MockTaskRepository)
		svc := NewAccessService(mockOrgRepo, mockTaskRepo)

		mockOrgRepo.On("IsMember", ctx, int64(1), "acme").Return(true, nil)
		mockTaskRepo.On("GetByReference", ctx, "acme", "BLIB-3").Return(nil, nil)

		allowed, err := svc.VerifyAccess(ctx, 1, room)
		assert.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("store failure is an error, not a denial", func(t *testing.T) {
		mockOrgRepo := new(MockOrganizationRepository)
		mockTaskRepo := new(MockTaskRepository)
		svc := NewAccessService(mockOrgRepo, mockTaskRepo)

		mockOrgRepo.On("IsMember", ctx, int64(1), "acme").Return(false, errors.New("connection refused"))

		_, err := svc.VerifyAccess(ctx, 1, room)
		assert.Error(t, err)
	})
}
