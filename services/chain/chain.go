package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"flai/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const dialTimeout = 10 * time.Second

var (
	transferEventSignature = gethcrypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	balanceOfSelector      = gethcrypto.Keccak256([]byte("balanceOf(address)"))[:4]
)

// TransferEvent is one ERC-20 Transfer observed on the settlement token.
type TransferEvent struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	TxHash      common.Hash
	BlockNumber uint64
}

// Service reads the Circle Layer chain and derives deposit addresses.
type Service interface {
	DeriveDepositAddress(index uint64) (string, error)
	// TokenBalance reads the settlement token balance at the confirmed block.
	TokenBalance(ctx context.Context, address string) (*big.Int, error)
	TransferEvents(ctx context.Context, address string, fromBlock uint64) ([]TransferEvent, error)
	ConfirmedBlock(ctx context.Context) (uint64, error)
}

// EVMClient is the subset of the Ethereum RPC surface this service uses.
type EVMClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
}

// CircleLayerService implements Service against a Circle Layer RPC node.
type CircleLayerService struct {
	client           EVMClient
	tokenAddress     common.Address
	merchantXPub     string
	minConfirmations uint64
	logger           *zap.Logger
}

// NewCircleLayerService dials the configured RPC endpoint and verifies the
// chain ID when one is configured.
func NewCircleLayerService(logger *zap.Logger) (*CircleLayerService, error) {
	rpcURL := strings.TrimSpace(config.AppConfig.CircleLayerRPCURL)
	if rpcURL == "" {
		return nil, fmt.Errorf("circle layer rpc url not configured")
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial circle layer rpc: %w", err)
	}

	svc := &CircleLayerService{
		client:           client,
		tokenAddress:     common.HexToAddress(config.AppConfig.CircleLayerUSDCAddress),
		merchantXPub:     config.AppConfig.CircleLayerMerchantXPub,
		minConfirmations: config.AppConfig.CircleLayerMinConfirmations,
		logger:           logger,
	}

	if want := config.AppConfig.CircleLayerChainID; want != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		got, err := client.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("read chain id: %w", err)
		}
		if got.Int64() != want {
			return nil, fmt.Errorf("chain id mismatch: expected %d, got %s", want, got)
		}
	}
	return svc, nil
}

// DeriveDepositAddress derives the checksummed deposit address at the given
// index from the merchant account xpub.
func (s *CircleLayerService) DeriveDepositAddress(index uint64) (string, error) {
	addr, err := DeriveAddressAtIndex(s.merchantXPub, index)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// ConfirmedBlock returns the latest block height minus the confirmation depth.
func (s *CircleLayerService) ConfirmedBlock(ctx context.Context) (uint64, error) {
	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("read block number: %w", err)
	}
	if latest < s.minConfirmations {
		return 0, nil
	}
	return latest - s.minConfirmations, nil
}

// TokenBalance calls balanceOf on the settlement token at the confirmed
// block, so an unconfirmed deposit does not trigger settlement.
func (s *CircleLayerService) TokenBalance(ctx context.Context, address string) (*big.Int, error) {
	confirmed, err := s.ConfirmedBlock(ctx)
	if err != nil {
		return nil, err
	}

	data := append(append([]byte{}, balanceOfSelector...),
		common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)
	msg := ethereum.CallMsg{To: &s.tokenAddress, Data: data}
	out, err := s.client.CallContract(ctx, msg, new(big.Int).SetUint64(confirmed))
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", address, err)
	}
	return new(big.Int).SetBytes(out), nil
}

// TransferEvents returns the token Transfer events into the given address
// from fromBlock up to the confirmed block.
func (s *CircleLayerService) TransferEvents(ctx context.Context, address string, fromBlock uint64) ([]TransferEvent, error) {
	confirmed, err := s.ConfirmedBlock(ctx)
	if err != nil {
		return nil, err
	}
	if confirmed < fromBlock {
		return nil, nil
	}

	toTopic := common.BytesToHash(common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32))
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(confirmed),
		Addresses: []common.Address{s.tokenAddress},
		Topics:    [][]common.Hash{{transferEventSignature}, nil, {toTopic}},
	}
	logs, err := s.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter transfer logs for %s: %w", address, err)
	}

	events := make([]TransferEvent, 0, len(logs))
	for _, log := range logs {
		if len(log.Topics) < 3 {
			continue
		}
		events = append(events, TransferEvent{
			From:        common.BytesToAddress(log.Topics[1].Bytes()),
			To:          common.BytesToAddress(log.Topics[2].Bytes()),
			Value:       new(big.Int).SetBytes(log.Data),
			TxHash:      log.TxHash,
			BlockNumber: log.BlockNumber,
		})
	}
	return events, nil
}
