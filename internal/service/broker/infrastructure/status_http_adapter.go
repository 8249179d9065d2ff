package infrastructure

import (
	"context"
	"net/url"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/httpclient"
)

const (
	reservationServiceName = "reservation-service"
	reservationLookupPath  = "/internal/requests/"
)

// ReservationStatusAdapter 通过内部路由 GET /internal/requests/{id} 查询预约的权威状态
type ReservationStatusAdapter struct {
	client *httpclient.Client
}

func NewReservationStatusAdapter(client *httpclient.Client) *ReservationStatusAdapter {
	return &ReservationStatusAdapter{client: client}
}

func (a *ReservationStatusAdapter) Lookup(ctx context.Context, requestID string) (string, bool, error) {
	var resp struct {
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	err := a.client.GetJSON(ctx, reservationServiceName, reservationLookupPath+url.PathEscape(requestID), &resp)
	if apperr.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return resp.Status, true, nil
}
