package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const webhookSecret = "whsec_router"

type signer struct{}

func (signer) SigningSecret() string { return webhookSecret }

type fakePayments struct{}

func (fakePayments) CreatePaymentIntent(_ context.Context, in stripe.PaymentIntentInput) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{
		ID:           "pi_router",
		ClientSecret: "pi_router_secret",
		AmountMinor:  in.AmountMinor,
		Currency:     in.Currency,
		Status:       "requires_payment_method",
	}, nil
}

func (fakePayments) UpdatePaymentIntentAmount(_ context.Context, id string, amountMinor int64) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{ID: id, AmountMinor: amountMinor}, nil
}

type testServer struct {
	handler http.Handler
	cfg     *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	client, conn := dbtest.Client(t)
	logg := logger.Nop()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	reg := prometheus.NewRegistry()

	cfg := &config.Config{
		App: config.AppConfig{Env: "test", AllowedOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 30},
		Checkout: config.CheckoutConfig{
			CartCookieName: "cart_token",
			CartCookieTTL:  time.Hour,
		},
	}

	products, err := product.NewService(product.NewRepository(conn), client, emitter, logg)
	require.NoError(t, err)
	carts, err := cart.NewManager(cart.NewRepository(conn), client, product.NewRepository(conn), logg)
	require.NoError(t, err)
	ledger, err := orders.NewLedger(orders.NewRepository(conn), client, emitter, logg)
	require.NoError(t, err)
	checkoutSvc, err := checkout.NewService(checkout.Deps{
		Tx:       client,
		Carts:    cart.NewRepository(conn),
		Orders:   orders.NewRepository(conn),
		Products: product.NewRepository(conn),
		Outbox:   emitter,
		Payments: fakePayments{},
		Currency: "usd",
		Metrics:  metrics.NewCheckoutMetrics(reg),
		Logger:   logg,
	})
	require.NoError(t, err)
	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{Checkout: checkoutSvc, Ledger: ledger, Logger: logg})
	require.NoError(t, err)

	handler := NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		Pingers:       map[string]controllers.Pinger{"db": client},
		Products:      products,
		Carts:         carts,
		Checkout:      checkoutSvc,
		Orders:        ledger,
		StripeWebhook: webhookSvc,
		StripeClient:  signer{},
		HTTPMetrics:   metrics.NewHTTPMetrics(reg),
		Gatherer:      reg,
	})
	return &testServer{handler: handler, cfg: cfg}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(s.cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, srv.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	ready := srv.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"db":"ok"`)

	metricsRec := srv.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), "http_requests_total")
}

func TestAdminRoutesRequireBackOfficeRole(t *testing.T) {
	srv := newTestServer(t)
	body := `{"name":"Mug","price":"12.50","inventory":5}`

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body))
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body))
	req.Header.Set("Authorization", srv.token(t, enums.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, srv.do(t, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body))
	req.Header.Set("Authorization", srv.token(t, enums.RoleOwner))
	assert.Equal(t, http.StatusBadRequest, srv.do(t, req).Code, "idempotency key is required")
}

func TestPurchaseFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.token(t, enums.RoleAdministrator)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(`{"name":"Mug","price":"12.50","inventory":5}`))
	req.Header.Set("Authorization", admin)
	req.Header.Set("Idempotency-Key", "create-mug")
	rec := srv.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created product.ProductDTO
	decodeData(t, rec, &created)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/products/name-taken?name=MUG", nil)
	req.Header.Set("Authorization", admin)
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"taken":true}}`, rec.Body.String())

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products?q=mug", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID.String())

	addBody := fmt.Sprintf(`{"product_id":%q,"quantity":2}`, created.ID)
	rec = srv.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(addBody)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cartCookie := cookies[0]

	req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.AddCookie(cartCookie)
	req.Header.Set("Idempotency-Key", "begin-1")
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var begun checkout.BeginResult
	decodeData(t, rec, &begun)
	assert.Equal(t, "pi_router", begun.PaymentIntentID)
	assert.Equal(t, "25", begun.Amount.String())

	pi := fmt.Sprintf(`{"id":"pi_router","object":"payment_intent","amount":2500,"amount_received":2500,"currency":"usd","status":"succeeded","receipt_email":"ada@example.com","metadata":{"cart_id":%q},"shipping":{"name":"Ada","address":{"line1":"1 Main St","city":"Springfield","state":"IL","country":"US","postal_code":"62701"}}}`, cartCookie.Value)
	payload := []byte(fmt.Sprintf(`{"id":"evt_router","object":"event","api_version":%q,"type":"payment_intent.succeeded","data":{"object":%s}}`, stripego.APIVersion, pi))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret, Timestamp: time.Now()})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders?email=ada&payment_status=succeeded", nil)
	req.Header.Set("Authorization", admin)
	rec = srv.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var list orders.OrderList
	decodeData(t, rec, &list)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "pi_router", list.Orders[0].PaymentIntentID)
	assert.Equal(t, 2, list.Orders[0].Quantity)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+created.ID.String(), nil))
	var after product.ProductDTO
	decodeData(t, rec, &after)
	assert.Equal(t, 3, after.Inventory)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(addBody))
	req.AddCookie(cartCookie)
	rec = srv.do(t, req)
	assert.Equal(t, http.StatusConflict, rec.Code, "closed cart rejects further changes")
}
