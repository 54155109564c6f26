package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	domain "gaplend-backend/internal/domain/chain"
	"gaplend-backend/pkg/amount"
)

// Escrow contract surface: fund takes the native coin as msg.value,
// fundToken pulls the stablecoin leg, withdraw releases principal plus
// accrued interest for the listing.
const escrowABI = `[
  {"type":"function","name":"fund","stateMutability":"payable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"fundToken","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"useUSDC","type":"bool"}],"outputs":[]},
  {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"}],"outputs":[]}
]`

const fundGasLimit = 300_000

type Config struct {
	RPCURL       string
	PrivateKey   string // hex, with or without 0x
	ContractAddr string
	ChainID      int64
}

// Gateway talks to the escrow contract through an ethclient and waits
// for one confirmation before reporting success.
type Gateway struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	opts     *bind.TransactOpts

	// serializes submissions so concurrent calls don't race on the nonce;
	// the confirmation wait happens outside this lock.
	submitMu sync.Mutex
}

var _ domain.Gateway = (*Gateway)(nil)

func NewGateway(cfg Config) (*Gateway, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}
	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.GasLimit = fundGasLimit

	if !common.IsHexAddress(cfg.ContractAddr) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddr)
	}
	addr := common.HexToAddress(cfg.ContractAddr)
	contract := bind.NewBoundContract(addr, parsed, client, client, client)

	return &Gateway{client: client, contract: contract, opts: opts}, nil
}

func (g *Gateway) Transfer(ctx context.Context, listingID uint64, amt amount.Amount, cur domain.Currency) (domain.TxRef, error) {
	if amt.Sign() <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", domain.ErrChainRejected)
	}
	if !cur.Supported() {
		return "", fmt.Errorf("%w: unsupported currency %q", domain.ErrChainRejected, cur)
	}

	id := new(big.Int).SetUint64(listingID)
	tx, err := g.submit(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		if cur == domain.Native {
			opts.Value = amt.BigInt()
			return g.contract.Transact(opts, "fund", id)
		}
		return g.contract.Transact(opts, "fundToken", id, amt.BigInt(), cur == domain.USDC)
	})
	if err != nil {
		logrus.Errorf("chain: transfer listing=%d submit failed: %v", listingID, err)
		return "", fmt.Errorf("%w: %v", domain.ErrChainRejected, err)
	}
	return g.awaitMined(ctx, tx)
}

func (g *Gateway) Release(ctx context.Context, listingID uint64) (domain.TxRef, error) {
	id := new(big.Int).SetUint64(listingID)
	tx, err := g.submit(ctx, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return g.contract.Transact(opts, "withdraw", id)
	})
	if err != nil {
		logrus.Errorf("chain: release listing=%d submit failed: %v", listingID, err)
		return "", fmt.Errorf("%w: %v", domain.ErrChainRejected, err)
	}
	return g.awaitMined(ctx, tx)
}

func (g *Gateway) Receipt(ctx context.Context, ref domain.TxRef) (domain.TxStatus, error) {
	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(string(ref)))
	if errors.Is(err, ethereum.NotFound) {
		return domain.StatusPending, nil
	}
	if err != nil {
		return domain.StatusUnknown, err
	}
	return mapReceiptStatus(receipt.Status), nil
}

func (g *Gateway) submit(ctx context.Context, send func(opts *bind.TransactOpts) (*types.Transaction, error)) (*types.Transaction, error) {
	g.submitMu.Lock()
	defer g.submitMu.Unlock()
	opts := *g.opts
	opts.Context = ctx
	return send(&opts)
}

// awaitMined blocks until one confirmation or the context deadline. The
// submitted hash is returned either way: a timed-out transaction may
// still confirm, and the caller needs the ref to reconcile it.
func (g *Gateway) awaitMined(ctx context.Context, tx *types.Transaction) (domain.TxRef, error) {
	ref := domain.TxRef(tx.Hash().Hex())
	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logrus.Warnf("chain: tx %s not confirmed before deadline", ref)
			return ref, domain.ErrChainTimeout
		}
		return ref, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		logrus.Errorf("chain: tx %s reverted", ref)
		return ref, fmt.Errorf("%w: tx %s reverted", domain.ErrChainRejected, ref)
	}
	return ref, nil
}

func mapReceiptStatus(status uint64) domain.TxStatus {
	if status == types.ReceiptStatusSuccessful {
		return domain.StatusConfirmed
	}
	return domain.StatusReverted
}
