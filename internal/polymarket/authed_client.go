package polymarket

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/poly-pro/clob-relay/internal/crypto"
)

// AuthedClient is a CLOB client bound to one wallet identity, funder, signature
// scheme and set of L2 credentials. It is immutable once built.
type AuthedClient struct {
	clob          *CLOBAPIClient
	signer        *crypto.Signer
	funder        common.Address
	signatureType SignatureType
	creds         APICredentials
}

// NewAuthedClient binds a CLOB client to an identity and its credentials.
func NewAuthedClient(clob *CLOBAPIClient, signer *crypto.Signer, funder common.Address, signatureType SignatureType, creds APICredentials) *AuthedClient {
	return &AuthedClient{
		clob:          clob,
		signer:        signer,
		funder:        funder,
		signatureType: signatureType,
		creds:         creds,
	}
}

func (c *AuthedClient) Signer() *crypto.Signer       { return c.signer }
func (c *AuthedClient) Funder() common.Address       { return c.funder }
func (c *AuthedClient) SignatureType() SignatureType { return c.signatureType }
func (c *AuthedClient) Credentials() APICredentials  { return c.creds }

// GetOrderBook fetches the order book for a token.
func (c *AuthedClient) GetOrderBook(ctx context.Context, tokenID string) (*OrderBookSummary, error) {
	return c.clob.GetOrderBook(ctx, tokenID)
}

// GetMidpoint fetches the midpoint price for a token.
func (c *AuthedClient) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	return c.clob.GetMidpoint(ctx, tokenID)
}

// PostOrder submits a signed order with this client's L2 credentials.
func (c *AuthedClient) PostOrder(ctx context.Context, order *SignedOrder, orderType OrderType) (*PostOrderResponse, error) {
	return c.clob.PostOrder(ctx, c.creds, c.signer.Address().Hex(), order, orderType)
}
