package wyvern

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	json "github.com/goccy/go-json"
	"github.com/mselser95/nft-orders/pkg/types"
	"github.com/shopspring/decimal"
)

// WireAsset is an asset reference inside order metadata.
type WireAsset struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Quantity string `json:"quantity,omitempty"`
	Decimals int32  `json:"decimals,omitempty"`
}

// WireBundle is a bundle reference inside order metadata.
type WireBundle struct {
	Name         string      `json:"name,omitempty"`
	Description  string      `json:"description,omitempty"`
	ExternalLink string      `json:"externalLink,omitempty"`
	Assets       []WireAsset `json:"assets"`
}

// WireMetadata mirrors types.OrderMetadata.
type WireMetadata struct {
	Asset           *WireAsset  `json:"asset,omitempty"`
	Bundle          *WireBundle `json:"bundle,omitempty"`
	Schema          string      `json:"schema,omitempty"`
	ReferrerAddress string      `json:"referrerAddress,omitempty"`
}

// WireOrder is the JSON shape sent to and received from the marketplace API.
// Integers are base-10 strings, addresses are lowercase hex and byte payloads are 0x-hex.
type WireOrder struct {
	Exchange                   string       `json:"exchange"`
	Maker                      string       `json:"maker"`
	Taker                      string       `json:"taker"`
	MakerRelayerFee            string       `json:"makerRelayerFee"`
	TakerRelayerFee            string       `json:"takerRelayerFee"`
	MakerProtocolFee           string       `json:"makerProtocolFee"`
	TakerProtocolFee           string       `json:"takerProtocolFee"`
	MakerReferrerFee           string       `json:"makerReferrerFee"`
	FeeRecipient               string       `json:"feeRecipient"`
	FeeMethod                  uint8        `json:"feeMethod"`
	Side                       uint8        `json:"side"`
	SaleKind                   uint8        `json:"saleKind"`
	Target                     string       `json:"target"`
	HowToCall                  uint8        `json:"howToCall"`
	Calldata                   string       `json:"calldata"`
	ReplacementPattern         string       `json:"replacementPattern"`
	StaticTarget               string       `json:"staticTarget"`
	StaticExtradata            string       `json:"staticExtradata"`
	PaymentToken               string       `json:"paymentToken"`
	BasePrice                  string       `json:"basePrice"`
	Extra                      string       `json:"extra"`
	ListingTime                string       `json:"listingTime"`
	ExpirationTime             string       `json:"expirationTime"`
	Salt                       string       `json:"salt"`
	Quantity                   string       `json:"quantity,omitempty"`
	WaitingForBestCounterOrder bool         `json:"waitingForBestCounterOrder"`
	EnglishAuctionReservePrice string       `json:"englishAuctionReservePrice,omitempty"`
	Metadata                   WireMetadata `json:"metadata"`

	Hash string `json:"hash,omitempty"`
	V    *uint8 `json:"v,omitempty"`
	R    string `json:"r,omitempty"`
	S    string `json:"s,omitempty"`

	Cancelled     bool   `json:"cancelled,omitempty"`
	Finalized     bool   `json:"finalized,omitempty"`
	MarkedInvalid bool   `json:"markedInvalid,omitempty"`
	CurrentPrice  string `json:"currentPrice,omitempty"`
}

func addrString(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Serialize converts an order into its canonical wire form.
func Serialize(o *types.Order) *WireOrder {
	w := &WireOrder{
		Exchange:                   addrString(o.Exchange),
		Maker:                      addrString(o.Maker),
		Taker:                      addrString(o.Taker),
		MakerRelayerFee:            intString(o.MakerRelayerFee),
		TakerRelayerFee:            intString(o.TakerRelayerFee),
		MakerProtocolFee:           intString(o.MakerProtocolFee),
		TakerProtocolFee:           intString(o.TakerProtocolFee),
		MakerReferrerFee:           intString(o.MakerReferrerFee),
		FeeRecipient:               addrString(o.FeeRecipient),
		FeeMethod:                  o.FeeMethod.Wire(),
		Side:                       o.Side.Wire(),
		SaleKind:                   o.SaleKind.Wire(),
		Target:                     addrString(o.Target),
		HowToCall:                  o.HowToCall.Wire(),
		Calldata:                   hexutil.Encode(o.Calldata),
		ReplacementPattern:         hexutil.Encode(o.ReplacementPattern),
		StaticTarget:               addrString(o.StaticTarget),
		StaticExtradata:            hexutil.Encode(o.StaticExtradata),
		PaymentToken:               addrString(o.PaymentToken),
		BasePrice:                  intString(o.BasePrice),
		Extra:                      intString(o.Extra),
		ListingTime:                intString(o.ListingTime),
		ExpirationTime:             intString(o.ExpirationTime),
		Salt:                       intString(o.Salt),
		WaitingForBestCounterOrder: o.WaitingForBestCounterOrder,
		Metadata:                   serializeMetadata(o.Metadata),
		Cancelled:                  o.Cancelled,
		Finalized:                  o.Finalized,
		MarkedInvalid:              o.MarkedInvalid,
	}

	if o.Quantity != nil {
		w.Quantity = o.Quantity.String()
	}
	if o.EnglishAuctionReservePrice != nil {
		w.EnglishAuctionReservePrice = o.EnglishAuctionReservePrice.String()
	}
	if o.Hash != (common.Hash{}) {
		w.Hash = o.Hash.Hex()
	}
	if o.Signature != nil {
		v := o.Signature.V
		w.V = &v
		w.R = o.Signature.R.Hex()
		w.S = o.Signature.S.Hex()
	}
	if o.CurrentPrice != nil {
		w.CurrentPrice = o.CurrentPrice.String()
	}

	return w
}

func serializeMetadata(m types.OrderMetadata) WireMetadata {
	wm := WireMetadata{
		Schema:          m.Schema,
		ReferrerAddress: m.ReferrerAddress,
	}
	if m.Asset != nil {
		a := serializeAsset(*m.Asset)
		wm.Asset = &a
	}
	if m.Bundle != nil {
		wb := &WireBundle{
			Name:         m.Bundle.Name,
			Description:  m.Bundle.Description,
			ExternalLink: m.Bundle.ExternalLink,
			Assets:       make([]WireAsset, 0, len(m.Bundle.Assets)),
		}
		for _, a := range m.Bundle.Assets {
			wb.Assets = append(wb.Assets, serializeAsset(a))
		}
		wm.Bundle = wb
	}
	return wm
}

func serializeAsset(a types.Asset) WireAsset {
	wa := WireAsset{
		ID:       a.TokenID,
		Address:  addrString(a.TokenAddress),
		Decimals: a.Decimals,
	}
	if a.Quantity != nil {
		wa.Quantity = a.Quantity.String()
	}
	return wa
}

// Deserialize parses a wire order. When the wire order carries a hash it must
// match the hash recomputed from the decoded fields.
func Deserialize(w *WireOrder) (*types.Order, error) {
	err := ValidateStructure(w)
	if err != nil {
		return nil, err
	}

	d := &decoder{}
	o := &types.Order{}
	u := &o.UnhashedOrder

	u.Exchange = d.address("exchange", w.Exchange)
	u.Maker = d.address("maker", w.Maker)
	u.Taker = d.address("taker", w.Taker)
	u.MakerRelayerFee = d.uint("makerRelayerFee", w.MakerRelayerFee)
	u.TakerRelayerFee = d.uint("takerRelayerFee", w.TakerRelayerFee)
	u.MakerProtocolFee = d.uint("makerProtocolFee", w.MakerProtocolFee)
	u.TakerProtocolFee = d.uint("takerProtocolFee", w.TakerProtocolFee)
	u.MakerReferrerFee = d.uint("makerReferrerFee", w.MakerReferrerFee)
	u.FeeRecipient = d.address("feeRecipient", w.FeeRecipient)
	u.Target = d.address("target", w.Target)
	u.Calldata = d.bytes("calldata", w.Calldata)
	u.ReplacementPattern = d.bytes("replacementPattern", w.ReplacementPattern)
	u.StaticTarget = d.address("staticTarget", w.StaticTarget)
	u.StaticExtradata = d.bytes("staticExtradata", w.StaticExtradata)
	u.PaymentToken = d.address("paymentToken", w.PaymentToken)
	u.BasePrice = d.uint("basePrice", w.BasePrice)
	u.Extra = d.uint("extra", w.Extra)
	u.ListingTime = d.uint("listingTime", w.ListingTime)
	u.ExpirationTime = d.uint("expirationTime", w.ExpirationTime)
	u.Salt = d.uint("salt", w.Salt)
	if w.Quantity != "" {
		u.Quantity = d.uint("quantity", w.Quantity)
	}
	if w.EnglishAuctionReservePrice != "" {
		u.EnglishAuctionReservePrice = d.uint("englishAuctionReservePrice", w.EnglishAuctionReservePrice)
	}
	if d.err != nil {
		return nil, d.err
	}

	if u.FeeMethod, err = types.ParseFeeMethod(w.FeeMethod); err != nil {
		return nil, fmt.Errorf("decode feeMethod: %w", err)
	}
	if u.Side, err = types.ParseSide(w.Side); err != nil {
		return nil, fmt.Errorf("decode side: %w", err)
	}
	if u.SaleKind, err = types.ParseSaleKind(w.SaleKind); err != nil {
		return nil, fmt.Errorf("decode saleKind: %w", err)
	}
	if u.HowToCall, err = types.ParseHowToCall(w.HowToCall); err != nil {
		return nil, fmt.Errorf("decode howToCall: %w", err)
	}

	u.WaitingForBestCounterOrder = w.WaitingForBestCounterOrder
	u.Metadata, err = deserializeMetadata(w.Metadata)
	if err != nil {
		return nil, err
	}

	o.Hash = HashOrder(u)
	if w.Hash != "" && !strings.EqualFold(w.Hash, o.Hash.Hex()) {
		return nil, fmt.Errorf("decode hash: wire hash %s does not match computed %s", w.Hash, o.Hash.Hex())
	}

	if w.V != nil {
		o.Signature = &types.ECSignature{
			V: *w.V,
			R: common.HexToHash(w.R),
			S: common.HexToHash(w.S),
		}
	}

	o.Cancelled = w.Cancelled
	o.Finalized = w.Finalized
	o.MarkedInvalid = w.MarkedInvalid
	if w.CurrentPrice != "" {
		price, err := decimal.NewFromString(w.CurrentPrice)
		if err != nil {
			return nil, fmt.Errorf("decode currentPrice: %w", err)
		}
		o.CurrentPrice = &price
	}

	return o, nil
}

func deserializeMetadata(wm WireMetadata) (types.OrderMetadata, error) {
	m := types.OrderMetadata{
		Schema:          wm.Schema,
		ReferrerAddress: wm.ReferrerAddress,
	}
	if wm.Asset != nil {
		a, err := deserializeAsset(*wm.Asset)
		if err != nil {
			return m, err
		}
		a.SchemaName = wm.Schema
		m.Asset = &a
	}
	if wm.Bundle != nil {
		b := &types.Bundle{
			Name:         wm.Bundle.Name,
			Description:  wm.Bundle.Description,
			ExternalLink: wm.Bundle.ExternalLink,
		}
		for _, wa := range wm.Bundle.Assets {
			a, err := deserializeAsset(wa)
			if err != nil {
				return m, err
			}
			a.SchemaName = wm.Schema
			b.Assets = append(b.Assets, a)
		}
		m.Bundle = b
	}
	return m, nil
}

func deserializeAsset(wa WireAsset) (types.Asset, error) {
	if !common.IsHexAddress(wa.Address) {
		return types.Asset{}, fmt.Errorf("decode metadata asset address %q: invalid address", wa.Address)
	}
	a := types.Asset{
		TokenAddress: common.HexToAddress(wa.Address),
		TokenID:      wa.ID,
		Decimals:     wa.Decimals,
	}
	if wa.Quantity != "" {
		q, ok := new(big.Int).SetString(wa.Quantity, 10)
		if !ok || q.Sign() <= 0 {
			return types.Asset{}, fmt.Errorf("decode metadata asset quantity %q: invalid positive integer", wa.Quantity)
		}
		a.Quantity = q
	}
	return a, nil
}

// decoder keeps the first error so field parsing reads linearly.
type decoder struct {
	err error
}

func (d *decoder) address(field, s string) common.Address {
	if d.err != nil {
		return common.Address{}
	}
	if !common.IsHexAddress(s) {
		d.err = fmt.Errorf("decode %s: invalid address %q", field, s)
		return common.Address{}
	}
	return common.HexToAddress(s)
}

func (d *decoder) uint(field, s string) *big.Int {
	if d.err != nil {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		d.err = fmt.Errorf("decode %s: invalid unsigned integer %q", field, s)
		return nil
	}
	if v.BitLen() > 256 {
		d.err = fmt.Errorf("decode %s: value overflows uint256", field)
		return nil
	}
	return v
}

func (d *decoder) bytes(field, s string) []byte {
	if d.err != nil {
		return nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		d.err = fmt.Errorf("decode %s: %w", field, err)
		return nil
	}
	return b
}

// Marshal encodes an order as wire JSON.
func Marshal(o *types.Order) ([]byte, error) {
	data, err := json.Marshal(Serialize(o))
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	return data, nil
}

// Unmarshal decodes wire JSON into an order.
func Unmarshal(data []byte) (*types.Order, error) {
	var w WireOrder
	err := json.Unmarshal(data, &w)
	if err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return Deserialize(&w)
}
