package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// ChainReader is the subset of ethclient.Client used for balance lookups.
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client reads native and ERC-20 payment-token balances.
type Client struct {
	chain  ChainReader
	erc20  abi.ABI
	closer func()
	logger *zap.Logger
}

// Balances holds on-chain balances for one owner and payment token.
type Balances struct {
	Native         *big.Int // in wei
	Token          *big.Int // in token base units
	TokenAllowance *big.Int // approved to the spender, in token base units
}

// NewClient wraps an existing chain reader.
func NewClient(chain ChainReader, logger *zap.Logger) (c *Client, err error) {
	if chain == nil {
		return nil, errors.New("chain reader cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	client := &Client{
		chain:  chain,
		erc20:  parsed,
		closer: func() {},
		logger: logger,
	}

	return client, nil
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string, logger *zap.Logger) (c *Client, err error) {
	if rpcURL == "" {
		return nil, errors.New("rpcURL cannot be empty")
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial RPC: %w", err)
	}

	c, err = NewClient(eth, logger)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.closer = eth.Close

	return c, nil
}

// Close releases the RPC connection, if the client owns one.
func (c *Client) Close() {
	c.closer()
}

// TokenBalance returns owner's balance of token. The null address means native ether.
func (c *Client) TokenBalance(ctx context.Context, owner, token common.Address) (balance *big.Int, err error) {
	if token == (common.Address{}) {
		balance, err = c.chain.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, fmt.Errorf("get native balance: %w", err)
		}
		return balance, nil
	}

	balance, err = c.callUint(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("get token balance: %w", err)
	}
	return balance, nil
}

// TokenAllowance returns how much of token spender may move on owner's behalf.
func (c *Client) TokenAllowance(ctx context.Context, owner, token, spender common.Address) (allowance *big.Int, err error) {
	allowance, err = c.callUint(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("get token allowance: %w", err)
	}
	return allowance, nil
}

// GetBalances fetches native balance plus token balance and allowance.
func (c *Client) GetBalances(ctx context.Context, owner, token, spender common.Address) (balances *Balances, err error) {
	native, err := c.TokenBalance(ctx, owner, common.Address{})
	if err != nil {
		return nil, err
	}

	tokenBalance, err := c.TokenBalance(ctx, owner, token)
	if err != nil {
		return nil, err
	}

	allowance, err := c.TokenAllowance(ctx, owner, token, spender)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("balances-fetched",
		zap.String("owner", owner.Hex()),
		zap.String("token", token.Hex()),
		zap.String("balance", tokenBalance.String()))

	balances = &Balances{
		Native:         native,
		Token:          tokenBalance,
		TokenAllowance: allowance,
	}

	return balances, nil
}

func (c *Client) callUint(ctx context.Context, contract common.Address, method string, args ...any) (*big.Int, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}

	result, err := c.chain.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}
