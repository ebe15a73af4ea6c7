package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

func testTypedData(amount string) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"Transfer": {
				{Name: "to", Type: "address"},
				{Name: "amount", Type: "uint256"},
			},
		},
		PrimaryType: "Transfer",
		Domain: apitypes.TypedDataDomain{
			Name:    "Test",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(137),
		},
		Message: apitypes.TypedDataMessage{
			"to":     "0x0000000000000000000000000000000000000001",
			"amount": amount,
		},
	}
}

func TestFromPrivateKeyHex(t *testing.T) {
	// Well-known development key.
	const key = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	want := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	for _, in := range []string{key, key[2:], "  " + key + "\n"} {
		s, err := FromPrivateKeyHex(in)
		if err != nil {
			t.Fatalf("FromPrivateKeyHex(%q): %v", in, err)
		}
		if s.Address() != want {
			t.Errorf("address = %s, want %s", s.Address().Hex(), want.Hex())
		}
	}
}

func TestFromPrivateKeyHexInvalid(t *testing.T) {
	if _, err := FromPrivateKeyHex("0xnothex"); err == nil {
		t.Fatal("expected error for invalid key")
	}
	if _, err := FromPrivateKeyHex(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestSignAndVerifyTypedData(t *testing.T) {
	s, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	td := testTypedData("1000")
	sig, err := s.SignTypedData(td)
	if err != nil {
		t.Fatalf("SignTypedData: %v", err)
	}

	// 0x + 65 bytes
	if len(sig) != 132 {
		t.Fatalf("signature length = %d, want 132", len(sig))
	}
	if v := sig[len(sig)-2:]; v != "1b" && v != "1c" {
		t.Errorf("recovery byte = %s, want 1b or 1c", v)
	}

	ok, err := VerifyTypedData(td, sig, s.Address())
	if err != nil {
		t.Fatalf("VerifyTypedData: %v", err)
	}
	if !ok {
		t.Error("signature did not verify against signer address")
	}
}

func TestVerifyTypedDataDetectsFieldChange(t *testing.T) {
	s, _ := GenerateKey()
	sig, err := s.SignTypedData(testTypedData("1000"))
	if err != nil {
		t.Fatalf("SignTypedData: %v", err)
	}

	ok, err := VerifyTypedData(testTypedData("1001"), sig, s.Address())
	if err != nil {
		t.Fatalf("VerifyTypedData: %v", err)
	}
	if ok {
		t.Error("signature verified after message field changed")
	}
}

func TestVerifyTypedDataRejectsGarbage(t *testing.T) {
	s, _ := GenerateKey()
	if _, err := VerifyTypedData(testTypedData("1"), "0x1234", s.Address()); err == nil {
		t.Error("expected error for short signature")
	}
}
