// Package payment delegates transaction creation to the Midtrans Snap
// gateway. The server holds the secret key; the browser only ever sees the
// Snap token and redirect URL.
package payment

import (
	"context"
	"crypto/sha512"
	"encoding/hex"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// Item is one line of the transaction sent to the gateway.
type Item struct {
	ID    string
	Name  string
	Price int64
	Qty   int32
}

// TransactionRequest carries what the gateway needs to open a payment.
type TransactionRequest struct {
	OrderID       string
	GrossAmount   int64
	CustomerName  string
	CustomerEmail string
	Items         []Item
}

// TransactionResult is the client-side handle returned by the gateway.
type TransactionResult struct {
	Token       string
	RedirectURL string
}

// Gateway is the payment delegate used by the handlers.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*TransactionResult, error)
	// VerifySignature checks the SHA-512 digest Midtrans attaches to its
	// payment notifications.
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

type snapGateway struct {
	client    snap.Client
	serverKey string
}

// NewSnapGateway builds a Midtrans Snap gateway. Anything but APP_ENV
// "production" talks to the sandbox.
func NewSnapGateway(serverKey, env string) Gateway {
	midtransEnv := midtrans.Sandbox
	if env == "production" {
		midtransEnv = midtrans.Production
	}

	var client snap.Client
	client.New(serverKey, midtransEnv)

	return &snapGateway{client: client, serverKey: serverKey}
}

func (g *snapGateway) CreateTransaction(_ context.Context, req TransactionRequest) (*TransactionResult, error) {
	items := make([]midtrans.ItemDetails, len(req.Items))
	for i, item := range req.Items {
		items[i] = midtrans.ItemDetails{
			ID:    item.ID,
			Name:  item.Name,
			Price: item.Price,
			Qty:   item.Qty,
		}
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.GrossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
		},
		Items: &items,
	}

	resp, midErr := g.client.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, midErr
	}
	return &TransactionResult{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// VerifySignature recomputes sha512(order_id + status_code + gross_amount +
// server_key) and compares it to the signature the gateway sent.
func (g *snapGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + g.serverKey))
	return hex.EncodeToString(sum[:]) == signatureKey
}
