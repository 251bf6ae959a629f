package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mselser95/nft-orders/internal/confirm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type waitTxOutput struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
	Success     bool   `json:"success"`
}

func newWaitTxCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "wait-tx <tx-hash>",
		Short: "Wait for a transaction to be mined",
		Long: `Polls RPC_URL until the transaction has a receipt, then prints the block,
gas used and outcome. A reverted transaction exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: runWaitTx,
	}
	c.Flags().Duration("timeout", 10*time.Minute, "Give up after this long")
	return c
}

func runWaitTx(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	raw, err := hexutil.Decode(args[0])
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("invalid transaction hash %q", args[0])
	}
	txHash := common.BytesToHash(raw)

	application, logger, cleanup, err := loadApp()
	if err != nil {
		return err
	}
	defer cleanup()

	tracker := application.Tracker()
	if tracker == nil {
		return errors.New("RPC_URL is required to track transactions")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	go func() {
		_ = tracker.Run(ctx)
	}()

	logger.Info("waiting-for-transaction", zap.String("tx-hash", txHash.Hex()))
	res, err := tracker.Wait(ctx, txHash)
	if err != nil && !errors.Is(err, confirm.ErrReverted) {
		return err
	}

	werr := writeJSON(cmd, waitTxOutput{
		TxHash:      res.TxHash.Hex(),
		BlockNumber: res.BlockNumber,
		GasUsed:     res.GasUsed,
		Success:     res.Err == nil,
	})
	if werr != nil {
		return werr
	}
	return res.Err
}
