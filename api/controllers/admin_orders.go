package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/query"
)

type orderReader interface {
	ListOrders(ctx context.Context, input orders.ListInput) (*orders.OrderList, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error)
}

// AdminListOrders lists orders for the back office. Filter values are passed
// through unparsed so every invalid parameter is reported in one response.
func AdminListOrders(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var filters []query.Filter
		if email := strings.TrimSpace(q.Get("email")); email != "" {
			filters = append(filters, query.Filter{Field: "email", Operator: query.OpContains, Value: email})
		}
		if raw := strings.TrimSpace(q.Get("payment_status")); raw != "" {
			filters = append(filters, query.Filter{Field: "payment_status", Operator: query.OpIn, Value: splitCSV(raw)})
		}
		if from := strings.TrimSpace(q.Get("from")); from != "" {
			filters = append(filters, query.Filter{Field: "created_at", Operator: query.OpGte, Value: from})
		}
		if to := strings.TrimSpace(q.Get("to")); to != "" {
			filters = append(filters, query.Filter{Field: "created_at", Operator: query.OpLte, Value: to})
		}

		list, err := svc.ListOrders(r.Context(), orders.ListInput{
			Filters:    filters,
			Pagination: pagination.Parse(q.Get("page"), q.Get("size")),
			Sort:       strings.TrimSpace(q.Get("sort")),
			Direction:  strings.ToLower(strings.TrimSpace(q.Get("direction"))),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminGetOrder(svc orderReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
