/**
 * @description
 * This file turns normalized trade parameters into a signed Polymarket CLOB order.
 *
 * Key features:
 * - Token ID Normalization: Hex (`0x`-prefixed) token ids are converted to the decimal
 *   form the order schema and API expect.
 * - Fixed-Point Amounts: Size and price are scaled by 10^6 and floored, never rounded
 *   up, so float overshoot can never over-commit funds.
 * - EIP-712 Signing: Every built order is signed against the configured exchange
 *   domain. The signature is recomputed for every build, so a rebuilt order with a
 *   fresh salt and expiration always carries a matching signature.
 *
 * @dependencies
 * - github.com/shopspring/decimal: For exact fixed-point arithmetic.
 * - github.com/poly-pro/clob-relay/internal/crypto: For EIP-712 signing.
 */

package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/poly-pro/clob-relay/internal/crypto"
	"github.com/poly-pro/clob-relay/internal/polymarket"
	"github.com/shopspring/decimal"
)

// amountScale is the venue's fixed-point convention: 6 decimals for both USDC and
// conditional tokens.
var amountScale = decimal.New(1, 6)

// saltBound keeps salts within 2^32 so they survive JSON number handling on the venue side.
var saltBound = new(big.Int).Lsh(big.NewInt(1), 32)

// Account is the identity an order is built for.
type Account interface {
	Signer() *crypto.Signer
	Funder() common.Address
	SignatureType() polymarket.SignatureType
}

// OrderParams are the normalized inputs of one order.
type OrderParams struct {
	TokenID   string // decimal
	Side      polymarket.Side
	Size      float64
	Price     float64
	OrderType polymarket.OrderType
	NegRisk   bool
}

// DomainFunc picks the EIP-712 domain for a market.
type DomainFunc func(negRisk bool) polymarket.Domain

// OrderBuilder constructs and signs orders.
type OrderBuilder struct {
	domain     DomainFunc
	feeRateBps int64
	expiration time.Duration
	now        func() time.Time
}

// NewOrderBuilder creates an OrderBuilder. A zero expiration leaves orders without expiry.
func NewOrderBuilder(domain DomainFunc, feeRateBps int64, expiration time.Duration) *OrderBuilder {
	return &OrderBuilder{
		domain:     domain,
		feeRateBps: feeRateBps,
		expiration: expiration,
		now:        time.Now,
	}
}

// NormalizeTokenID converts a 0x-prefixed hex token id to decimal. Anything else
// is returned trimmed but otherwise unchanged.
func NormalizeTokenID(tokenID string) (string, error) {
	raw := strings.TrimSpace(tokenID)
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return raw, nil
	}
	n, ok := new(big.Int).SetString(raw[2:], 16)
	if !ok {
		return "", validationErrorf("Invalid tokenId: %q", tokenID)
	}
	return n.String(), nil
}

// ParseSide maps "BUY" (any case) to BUY and everything else to SELL.
func ParseSide(side string) polymarket.Side {
	if strings.EqualFold(strings.TrimSpace(side), "BUY") {
		return polymarket.BUY
	}
	return polymarket.SELL
}

// ParseOrderType maps "FOK" (any case) to FOK and everything else to FAK.
func ParseOrderType(orderType string) polymarket.OrderType {
	if strings.EqualFold(strings.TrimSpace(orderType), "FOK") {
		return polymarket.OrderTypeFOK
	}
	return polymarket.OrderTypeFAK
}

// OrderSize rounds a quantity to the two decimals the venue accepts.
func OrderSize(quantity float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Round(2)
}

// Amounts returns the fixed-point maker and taker amounts for an order.
// BUY pays size*price collateral for size tokens; SELL is the mirror image.
func Amounts(side polymarket.Side, size, price float64) (makerAmount, takerAmount *big.Int) {
	s := OrderSize(size)
	tokens := s.Mul(amountScale).Floor().BigInt()
	collateral := s.Mul(decimal.NewFromFloat(price)).Mul(amountScale).Floor().BigInt()

	if side == polymarket.BUY {
		return collateral, tokens
	}
	return tokens, collateral
}

func randomSalt() (string, error) {
	n, err := rand.Int(rand.Reader, saltBound)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

/**
 * @description
 * BuildOrder constructs the canonical order for acct and signs it.
 *
 * @param acct The signing identity, funder and signature scheme.
 * @param params The normalized order inputs.
 * @returns The signed order.
 * @returns An error if the inputs are unusable or signing fails.
 */
func (b *OrderBuilder) BuildOrder(acct Account, params OrderParams) (*polymarket.SignedOrder, error) {
	if params.TokenID == "" {
		return nil, validationErrorf("Missing: tokenId")
	}
	if _, ok := new(big.Int).SetString(params.TokenID, 10); !ok {
		return nil, validationErrorf("Invalid tokenId: %q", params.TokenID)
	}
	if acct == nil || acct.Signer() == nil {
		return nil, fmt.Errorf("%w: no signing identity", ErrConfiguration)
	}

	makerAmount, takerAmount := Amounts(params.Side, params.Size, params.Price)
	if makerAmount.Sign() <= 0 || takerAmount.Sign() <= 0 {
		return nil, validationErrorf("Invalid amount/size")
	}

	salt, err := randomSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	expiration := "0"
	if b.expiration > 0 {
		expiration = strconv.FormatInt(b.now().Add(b.expiration).Unix(), 10)
	}

	order := polymarket.Order{
		Salt:          salt,
		Maker:         acct.Funder().Hex(),
		Signer:        acct.Signer().Address().Hex(),
		Taker:         polymarket.ZeroAddress,
		TokenID:       params.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Expiration:    expiration,
		Nonce:         "0",
		FeeRateBps:    strconv.FormatInt(b.feeRateBps, 10),
		Side:          params.Side,
		SignatureType: acct.SignatureType(),
	}

	domain := b.domain(params.NegRisk)
	signature, err := acct.Signer().SignTypedData(order.TypedData(domain))
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	return &polymarket.SignedOrder{
		Order:     order,
		Signature: signature,
		Domain:    domain,
	}, nil
}

// VerifyOrder checks that the order's signature matches its signer field under
// the domain it was signed for.
func VerifyOrder(order *polymarket.SignedOrder) error {
	if !common.IsHexAddress(order.Signer) {
		return errors.New("order signer is not an address")
	}
	ok, err := crypto.VerifyTypedData(order.TypedData(order.Domain), order.Signature, common.HexToAddress(order.Signer))
	if err != nil {
		return err
	}
	if !ok {
		return crypto.ErrInvalidSignature
	}
	return nil
}
