package entitlement

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/usercontext"
)

// fakeRepo keeps one subscription per msisdn and mimics the ceiling-bounded
// consume of the real storage layer.
type fakeRepo struct {
	subs    map[string]*models.Subscription
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subs: make(map[string]*models.Subscription)}
}

func (f *fakeRepo) FindCurrentSubscription(msisdn string, now time.Time) (*models.Subscription, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	sub, ok := f.subs[msisdn]
	if !ok || !sub.IsCurrent(now) {
		return nil, nil
	}
	return sub, nil
}

func (f *fakeRepo) ConsumeAccess(subscriptionID uint) (bool, error) {
	for _, sub := range f.subs {
		if sub.ID != subscriptionID {
			continue
		}
		if sub.Status != models.SubscriptionStatusActive || sub.AccessCount >= sub.MaxAccess {
			return false, nil
		}
		sub.AccessCount++
		if sub.AccessCount >= sub.MaxAccess {
			sub.Status = models.SubscriptionStatusExhausted
		}
		return true, nil
	}
	return false, nil
}

func subscriberContext(msisdn string) usercontext.UserContext {
	return usercontext.UserContext{
		PhoneNumber: msisdn,
		Role:        usercontext.RoleSubscriber,
		IsLoggedIn:  true,
	}
}

func TestCheck_PrivilegedBypass(t *testing.T) {
	guard := NewGuard(newFakeRepo())

	decision, err := guard.Check(usercontext.UserContext{
		PhoneNumber: "2348030000001",
		Role:        usercontext.RoleAdmin,
		IsLoggedIn:  true,
	})

	require.NoError(t, err)
	assert.Equal(t, Bypassed, decision.Kind)
	assert.Nil(t, decision.Subscription)
}

func TestCheck_NotLoggedIn(t *testing.T) {
	guard := NewGuard(newFakeRepo())

	decision, err := guard.Check(usercontext.UserContext{})

	require.NoError(t, err)
	assert.Equal(t, DeniedUnauthenticated, decision.Kind)
}

func TestCheck_NoSubscription(t *testing.T) {
	guard := NewGuard(newFakeRepo())

	decision, err := guard.Check(subscriberContext("2348030000001"))

	require.NoError(t, err)
	assert.Equal(t, DeniedNoSubscription, decision.Kind)
}

// TestCheck_ExhaustedIsNotNoSubscription tests that an exhausted subscriber is
// told about exhaustion, not about a missing subscription.
func TestCheck_ExhaustedIsNotNoSubscription(t *testing.T) {
	repo := newFakeRepo()
	repo.subs["2348030000001"] = &models.Subscription{
		ID:              1,
		UserPhoneNumber: "2348030000001",
		Status:          models.SubscriptionStatusActive,
		MaxAccess:       10,
		AccessCount:     10,
	}
	guard := NewGuard(repo)

	decision, err := guard.Check(subscriberContext("2348030000001"))

	require.NoError(t, err)
	assert.Equal(t, DeniedExhausted, decision.Kind)
	assert.NotEqual(t, DeniedNoSubscription, decision.Kind)
	require.NotNil(t, decision.Subscription)
	assert.Equal(t, uint(1), decision.Subscription.ID)
}

func TestCheck_Allowed(t *testing.T) {
	repo := newFakeRepo()
	repo.subs["2348030000001"] = &models.Subscription{
		ID:              7,
		UserPhoneNumber: "2348030000001",
		Status:          models.SubscriptionStatusActive,
		MaxAccess:       10,
		AccessCount:     3,
	}
	guard := NewGuard(repo)

	decision, err := guard.Check(subscriberContext("2348030000001"))

	require.NoError(t, err)
	assert.Equal(t, Allowed, decision.Kind)
	assert.Equal(t, 7, decision.Subscription.Remaining())
}

func TestCheck_RepositoryError(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = errors.New("db down")
	guard := NewGuard(repo)

	_, err := guard.Check(subscriberContext("2348030000001"))

	assert.Error(t, err)
}

// TestConsume_BelowCeilingStaysActive tests that consuming one below the
// ceiling never transitions the row early: 8 of 10 becomes 9 of 10, ACTIVE.
func TestConsume_BelowCeilingStaysActive(t *testing.T) {
	repo := newFakeRepo()
	sub := &models.Subscription{
		ID:              2,
		UserPhoneNumber: "2348030000001",
		Status:          models.SubscriptionStatusActive,
		MaxAccess:       10,
		AccessCount:     8,
	}
	repo.subs["2348030000001"] = sub
	guard := NewGuard(repo)

	consumed, err := guard.Consume(sub)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Equal(t, 9, sub.AccessCount)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, 1, sub.Remaining())
}

// TestConsume_FlipsToExhaustedAtCeiling tests the ninth-to-tenth access
// transition and that the exhausted row cannot be charged again.
func TestConsume_FlipsToExhaustedAtCeiling(t *testing.T) {
	repo := newFakeRepo()
	sub := &models.Subscription{
		ID:              3,
		UserPhoneNumber: "2348030000001",
		Status:          models.SubscriptionStatusActive,
		MaxAccess:       10,
		AccessCount:     9,
	}
	repo.subs["2348030000001"] = sub
	guard := NewGuard(repo)

	consumed, err := guard.Consume(sub)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Equal(t, 10, sub.AccessCount)
	assert.Equal(t, models.SubscriptionStatusExhausted, sub.Status)

	consumed, err = guard.Consume(sub)
	require.NoError(t, err)
	assert.False(t, consumed)
	assert.Equal(t, 10, sub.AccessCount)
}

func protectedApp(guard *Guard, uc usercontext.UserContext, handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, uc)
		return c.Next()
	})
	app.Get("/content/daily", RequireActiveSubscription(guard), handler)
	return app
}

func okHandler(c *fiber.Ctx) error {
	return c.SendString("daily content")
}

func TestMiddleware_Unauthenticated(t *testing.T) {
	app := protectedApp(NewGuard(newFakeRepo()), usercontext.UserContext{}, okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/content/daily", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddleware_NoSubscription(t *testing.T) {
	app := protectedApp(NewGuard(newFakeRepo()), subscriberContext("2348030000001"), okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/content/daily", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "no active subscription")
}

// TestMiddleware_ConsumesAfterSuccess tests the full exhaustion scenario: a
// subscriber on 9 of 10 gets one more page, lands on EXHAUSTED, and the next
// request is rejected with the maximum-access message.
func TestMiddleware_ConsumesAfterSuccess(t *testing.T) {
	repo := newFakeRepo()
	sub := &models.Subscription{
		ID:              5,
		UserPhoneNumber: "2348030000001",
		Status:          models.SubscriptionStatusActive,
		MaxAccess:       10,
		AccessCount:     9,
	}
	repo.subs["2348030000001"] = sub
	app := protectedApp(NewGuard(repo), subscriberContext("2348030000001"), okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/content/daily", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, sub.AccessCount)
	assert.Equal(t, models.SubscriptionStatusExhausted, sub.Status)

	resp, err = app.Test(httptest.NewRequest("GET", "/content/daily", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "maximum access")
	assert.NotContains(t, string(body), "no active subscription")
}

// TestMiddleware_FailedHandlerDoesNotConsume tests that a failed content
// delivery leaves the access count untouched.
func TestMiddleware_FailedHandlerDoesNotConsume(t *testing.T) {
	repo := newFakeRepo()
	sub := &models.Subscription{
		ID:              6,
		UserPhoneNumber: "2348030000001",
		Status:          models.SubscriptionStatusActive,
		MaxAccess:       10,
		AccessCount:     4,
	}
	repo.subs["2348030000001"] = sub
	app := protectedApp(NewGuard(repo), subscriberContext("2348030000001"), func(c *fiber.Ctx) error {
		return fiber.ErrInternalServerError
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/content/daily", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 4, sub.AccessCount)
}

func TestMiddleware_AdminBypassDoesNotConsume(t *testing.T) {
	repo := newFakeRepo()
	sub := &models.Subscription{
		ID:              8,
		UserPhoneNumber: "2348030000009",
		Status:          models.SubscriptionStatusActive,
		MaxAccess:       10,
		AccessCount:     2,
	}
	repo.subs["2348030000009"] = sub
	app := protectedApp(NewGuard(repo), usercontext.UserContext{
		PhoneNumber: "2348030000009",
		Role:        usercontext.RoleSuperAdmin,
		IsLoggedIn:  true,
	}, okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/content/daily", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, sub.AccessCount)
}
