/**
 * @description
 * This file defines the EIP-712 typed data structure for Polymarket CLOB orders
 * and the wire representation of a signed order.
 *
 * Key features:
 * - Domain: `Domain` describes the exchange contract the order is signed for.
 *   The verifying contract is optional; when empty it is left out of both the
 *   domain value and the `EIP712Domain` type.
 * - Types: `OrderTypes` matches the on-chain `Order` struct field for field.
 * - Wire Format: `SignedOrder.MarshalJSON` renders the order the way the
 *   `/order` endpoint expects it (numeric salt, "BUY"/"SELL" side).
 *
 * @dependencies
 * - github.com/ethereum/go-ethereum/signer/core/apitypes: Provides the base `TypedData` struct.
 */

package polymarket

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ZeroAddress is the taker for public orders.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

const (
	// DefaultChainID is Polygon mainnet.
	DefaultChainID = 137
	// DefaultDomainName is the EIP-712 domain name of the CTF exchange.
	DefaultDomainName = "Polymarket CTF Exchange"
	// DefaultDomainVersion is the EIP-712 domain version of the CTF exchange.
	DefaultDomainVersion = "1"
	// DefaultExchangeAddress is the CTF exchange on Polygon mainnet.
	DefaultExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	// DefaultNegRiskExchangeAddress is the neg-risk CTF exchange on Polygon mainnet.
	DefaultNegRiskExchangeAddress = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
)

// Side is the order side as encoded in the exchange contract.
type Side int

const (
	BUY  Side = 0
	SELL Side = 1
)

func (s Side) String() string {
	if s == BUY {
		return "BUY"
	}
	return "SELL"
}

// SignatureType selects how the exchange validates the order signature.
type SignatureType int

const (
	// SignatureTypeEOA: the signer is also the maker.
	SignatureTypeEOA SignatureType = 0
	// SignatureTypePolyProxy: the maker is a Polymarket proxy wallet.
	SignatureTypePolyProxy SignatureType = 1
	// SignatureTypePolyGnosisSafe: the maker is a Gnosis safe funder.
	SignatureTypePolyGnosisSafe SignatureType = 2
)

// OrderType is the execution mode sent alongside the order.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC"
	OrderTypeGTD OrderType = "GTD"
	OrderTypeFOK OrderType = "FOK"
	OrderTypeFAK OrderType = "FAK"
)

// Domain describes the EIP-712 domain an order is signed against.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// DefaultDomain returns the CTF exchange domain on Polygon mainnet.
func DefaultDomain() Domain {
	return Domain{
		Name:              DefaultDomainName,
		Version:           DefaultDomainVersion,
		ChainID:           DefaultChainID,
		VerifyingContract: DefaultExchangeAddress,
	}
}

func (d Domain) typedDataDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              d.Name,
		Version:           d.Version,
		ChainId:           math.NewHexOrDecimal256(d.ChainID),
		VerifyingContract: d.VerifyingContract,
	}
}

func (d Domain) domainType() []apitypes.Type {
	fields := []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	}
	if d.VerifyingContract != "" {
		fields = append(fields, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	return fields
}

// OrderTypes defines the EIP-712 message type for an Order.
var OrderTypes = []apitypes.Type{
	{Name: "salt", Type: "uint256"},
	{Name: "maker", Type: "address"},
	{Name: "signer", Type: "address"},
	{Name: "taker", Type: "address"},
	{Name: "tokenId", Type: "uint256"},
	{Name: "makerAmount", Type: "uint256"},
	{Name: "takerAmount", Type: "uint256"},
	{Name: "expiration", Type: "uint256"},
	{Name: "nonce", Type: "uint256"},
	{Name: "feeRateBps", Type: "uint256"},
	{Name: "side", Type: "uint8"},
	{Name: "signatureType", Type: "uint8"},
}

// Order represents the EIP-712 message for a Polymarket CLOB order.
// Integer fields are decimal strings.
type Order struct {
	Salt          string
	Maker         string
	Signer        string
	Taker         string
	TokenID       string
	MakerAmount   string
	TakerAmount   string
	Expiration    string
	Nonce         string
	FeeRateBps    string
	Side          Side
	SignatureType SignatureType
}

// ToMessage converts the Order into the map form required for EIP-712 hashing.
func (o Order) ToMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"salt":          o.Salt,
		"maker":         o.Maker,
		"signer":        o.Signer,
		"taker":         o.Taker,
		"tokenId":       o.TokenID,
		"makerAmount":   o.MakerAmount,
		"takerAmount":   o.TakerAmount,
		"expiration":    o.Expiration,
		"nonce":         o.Nonce,
		"feeRateBps":    o.FeeRateBps,
		"side":          big.NewInt(int64(o.Side)),
		"signatureType": big.NewInt(int64(o.SignatureType)),
	}
}

// TypedData wraps the order in a full EIP-712 payload for the given domain.
func (o Order) TypedData(domain Domain) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domain.domainType(),
			"Order":        OrderTypes,
		},
		PrimaryType: "Order",
		Domain:      domain.typedDataDomain(),
		Message:     o.ToMessage(),
	}
}

// SignedOrder is an Order plus the signature and the domain it was signed for.
type SignedOrder struct {
	Order
	Signature string
	Domain    Domain
}

// signedOrderJSON is the shape the /order endpoint accepts.
type signedOrderJSON struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

func (o SignedOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(signedOrderJSON{
		Salt:          json.Number(o.Salt),
		Maker:         o.Maker,
		Signer:        o.Signer,
		Taker:         o.Taker,
		TokenID:       o.TokenID,
		MakerAmount:   o.MakerAmount,
		TakerAmount:   o.TakerAmount,
		Expiration:    o.Expiration,
		Nonce:         o.Nonce,
		FeeRateBps:    o.FeeRateBps,
		Side:          o.Side.String(),
		SignatureType: int(o.SignatureType),
		Signature:     o.Signature,
	})
}

func (o *SignedOrder) UnmarshalJSON(data []byte) error {
	var raw signedOrderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	side := SELL
	switch raw.Side {
	case "BUY", "0":
		side = BUY
	case "SELL", "1":
	default:
		return fmt.Errorf("unknown order side %q", raw.Side)
	}
	o.Order = Order{
		Salt:          raw.Salt.String(),
		Maker:         raw.Maker,
		Signer:        raw.Signer,
		Taker:         raw.Taker,
		TokenID:       raw.TokenID,
		MakerAmount:   raw.MakerAmount,
		TakerAmount:   raw.TakerAmount,
		Expiration:    raw.Expiration,
		Nonce:         raw.Nonce,
		FeeRateBps:    raw.FeeRateBps,
		Side:          side,
		SignatureType: SignatureType(raw.SignatureType),
	}
	o.Signature = raw.Signature
	return nil
}
