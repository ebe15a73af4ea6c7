package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/poly-pro/clob-relay/internal/crypto"
	"github.com/poly-pro/clob-relay/internal/polymarket"
)

// testPrivateKey is the first well-known development account key.
const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDomain(negRisk bool) polymarket.Domain {
	d := polymarket.DefaultDomain()
	if negRisk {
		d.VerifyingContract = polymarket.DefaultNegRiskExchangeAddress
	}
	return d
}

type testAccount struct {
	signer        *crypto.Signer
	funder        common.Address
	signatureType polymarket.SignatureType
}

func (a *testAccount) Signer() *crypto.Signer                  { return a.signer }
func (a *testAccount) Funder() common.Address                  { return a.funder }
func (a *testAccount) SignatureType() polymarket.SignatureType { return a.signatureType }

func newTestAccount(t *testing.T) *testAccount {
	t.Helper()
	signer, err := crypto.FromPrivateKeyHex(testPrivateKey)
	if err != nil {
		t.Fatalf("FromPrivateKeyHex: %v", err)
	}
	return &testAccount{signer: signer, funder: signer.Address(), signatureType: polymarket.SignatureTypeEOA}
}
