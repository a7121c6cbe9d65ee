// Package ethereum implements the asset ledger capability over an EVM
// JSON-RPC endpoint: ERC-721 ownership and transfer for the auctioned asset,
// ERC-20 balance/allowance/transfer for payment, and the chain's block clock
// as the time oracle.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	ethereumgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/config"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

const erc721ABI = `[
  {"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

const erc20ABI = `[
  {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

type Client struct {
	rpc      *ethclient.Client
	nft      common.Address
	token    common.Address
	nftABI   abi.ABI
	tokenABI abi.ABI
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	log      logger.Logger
}

func New(cfg config.EthereumConfig, log logger.Logger) (*Client, error) {
	rpc, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing ethereum rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing operator private key: %w", err)
	}

	nftABI, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, err
	}
	tokenABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}

	return &Client{
		rpc:      rpc,
		nft:      common.HexToAddress(cfg.NFTContract),
		token:    common.HexToAddress(cfg.TokenContract),
		nftABI:   nftABI,
		tokenABI: tokenABI,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(cfg.ChainID),
		log:      log,
	}, nil
}

func (c *Client) OwnerOf(ctx context.Context, assetID string) (string, error) {
	tokenID, err := parseTokenID(assetID)
	if err != nil {
		return "", err
	}
	out, err := c.call(ctx, c.nft, c.nftABI, "ownerOf", tokenID)
	if err != nil {
		return "", ledgerErr("ownerOf", err)
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return "", ledgerErr("ownerOf", fmt.Errorf("unexpected return type %T", out[0]))
	}
	return owner.Hex(), nil
}

func (c *Client) BalanceOf(ctx context.Context, identity string) (*big.Int, error) {
	out, err := c.call(ctx, c.token, c.tokenABI, "balanceOf", common.HexToAddress(identity))
	if err != nil {
		return nil, ledgerErr("balanceOf", err)
	}
	return asBigInt("balanceOf", out[0])
}

func (c *Client) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	out, err := c.call(ctx, c.token, c.tokenABI, "allowance",
		common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, ledgerErr("allowance", err)
	}
	return asBigInt("allowance", out[0])
}

func (c *Client) TransferAsset(ctx context.Context, assetID, from, to string) (string, error) {
	tokenID, err := parseTokenID(assetID)
	if err != nil {
		return "", err
	}
	txHash, err := c.send(ctx, c.nft, c.nftABI, "transferFrom",
		common.HexToAddress(from), common.HexToAddress(to), tokenID)
	if err != nil {
		return "", ledgerErr("transferAsset", err)
	}
	c.log.Info("Asset transferred", "asset_id", assetID, "from", from, "to", to, "tx", txHash)
	return txHash, nil
}

func (c *Client) TransferValue(ctx context.Context, from, to string, amount *big.Int) (string, error) {
	// transferFrom spends the allowance the bidder granted the operator.
	txHash, err := c.send(ctx, c.token, c.tokenABI, "transferFrom",
		common.HexToAddress(from), common.HexToAddress(to), amount)
	if err != nil {
		return "", ledgerErr("transferValue", err)
	}
	c.log.Info("Value transferred", "from", from, "to", to, "amount", amount.String(), "tx", txHash)
	return txHash, nil
}

// CurrentTime returns the latest block's timestamp: the clock auctions are
// judged against.
func (c *Client) CurrentTime(ctx context.Context) (int64, error) {
	header, err := c.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, ledgerErr("currentTime", err)
	}
	return int64(header.Time), nil
}

func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	height, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		return 0, ledgerErr("blockHeight", err)
	}
	return height, nil
}

func (c *Client) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.rpc.CallContract(ctx, ethereumgo.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return parsed.Unpack(method, out)
}

func (c *Client) send(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) (string, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return "", err
	}

	nonce, err := c.rpc.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", err
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}
	gas, err := c.rpc.EstimateGas(ctx, ethereumgo.CallMsg{From: c.from, To: &to, Data: data})
	if err != nil {
		return "", err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", err
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return "", err
	}

	receipt, err := bind.WaitMined(ctx, c.rpc, signed)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("transaction %s reverted", signed.Hash().Hex())
	}
	return signed.Hash().Hex(), nil
}

func parseTokenID(assetID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(assetID, 10)
	if !ok {
		return nil, domain.Validationf("asset id %q is not a valid token id", assetID)
	}
	return id, nil
}

func asBigInt(op string, v interface{}) (*big.Int, error) {
	n, ok := v.(*big.Int)
	if !ok {
		return nil, ledgerErr(op, fmt.Errorf("unexpected return type %T", v))
	}
	return n, nil
}

func ledgerErr(op string, err error) error {
	return &domain.LedgerError{Ledger: "asset", Op: op, Err: err}
}
