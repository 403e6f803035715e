// Package construct implements the Transaction Constructor: it assembles an
// unsigned transfer transaction for either a native-coin or fungible-token
// payment, guaranteeing the payment's reference key is addressable by any
// ledger-side "find transaction by account touched" query.
//
// Grounded in the instruction-assembly style of the teacher's Solana payout
// state machine (services/payments/statemachine_solana.go's makeInstructions
// and getTransferInstruction), adapted from a server-signs-and-sends payout
// flow into a build-only flow: the caller (typically a wallet adapter on the
// customer's device) supplies the signature, so BuildTransfer never touches
// a private key.
package construct

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/memo"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// Sentinel errors surfaced verbatim to callers, per spec.md §4.1.
var (
	ErrInsufficientBalance    = errors.New("payer balance is insufficient for the requested transfer")
	ErrTokenAccountFrozen     = errors.New("payer's token account is frozen")
	ErrTokenMintNotInitialized = errors.New("token mint is not initialized")
	ErrRecipientUninitialized = errors.New("recipient wallet account does not exist")
)

const tokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// AccountInfoChecker is the minimal on-chain read surface BuildTransfer
// needs to decide which guard instructions (ATA creation) are required and
// which sentinel error, if any, applies. payments/solanaledger.Client
// satisfies this via its AccountInfo/GetBalance methods.
type AccountInfoChecker interface {
	// AccountInfo reports whether pubkey exists and, if so, which program
	// owns it. A non-existent account is exists=false, err=nil.
	AccountInfo(ctx context.Context, pubkey string) (exists bool, owner string, err error)
	// GetBalance returns pubkey's native-lamport (or, for a token account,
	// its own distinct balance call is not used here) balance.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// TransferRequest is the (payer, recipient, amount, reference, instrument,
// optional memo) tuple spec.md §4.1 names as BuildTransfer's input.
type TransferRequest struct {
	Payer           string // base58 fee-payer / sender wallet
	Recipient       string // base58 recipient wallet
	Reference       string // base58 reference key to embed
	AmountBaseUnits uint64
	Kind            payments.Kind
	TokenMint       string // required iff Kind == KindToken
	TokenDecimals   uint8  // required iff Kind == KindToken
	MemoText        string // optional; appended as a trailing memo instruction
	RecentBlockhash string
}

// BuildResult carries the compiled, unsigned message ready for a wallet to
// sign, alongside the structured instruction list for tests/inspection.
type BuildResult struct {
	Message                 types.Message
	Instructions            []types.Instruction
	SerializedMessageBase64 string
}

// BuildTransfer assembles the unsigned transfer transaction described by
// req, per spec.md §4.1. The reference key is always appended as a
// read-only, non-signing account on the transfer instruction itself (never
// the ATA-creation instruction), so that any query for accounts touched by
// the eventual signed transaction will surface it regardless of which
// instruction the ledger indexes first.
func BuildTransfer(ctx context.Context, checker AccountInfoChecker, req TransferRequest) (*BuildResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	payer := common.PublicKeyFromString(req.Payer)
	recipient := common.PublicKeyFromString(req.Recipient)
	reference := common.PublicKeyFromString(req.Reference)

	var instructions []types.Instruction
	var err error
	switch req.Kind {
	case payments.KindNative:
		instructions, err = nativeInstructions(ctx, checker, payer, recipient, reference, req.AmountBaseUnits)
	case payments.KindToken:
		instructions, err = tokenInstructions(ctx, checker, payer, recipient, reference, req)
	default:
		return nil, fmt.Errorf("construct: unknown payment kind %q", req.Kind)
	}
	if err != nil {
		return nil, err
	}

	if req.MemoText != "" {
		instructions = append(instructions, memo.BuildMemo(memo.BuildMemoParam{
			SignerPubkeys: []common.PublicKey{payer},
			Memo:          req.MemoText,
		}))
	}

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        payer,
		RecentBlockhash: req.RecentBlockhash,
		Instructions:    instructions,
	})

	serialized, err := msg.Serialize()
	if err != nil {
		return nil, fmt.Errorf("construct: serialize message: %w", err)
	}

	return &BuildResult{
		Message:                 msg,
		Instructions:            instructions,
		SerializedMessageBase64: base64.StdEncoding.EncodeToString(serialized),
	}, nil
}

func validateRequest(req TransferRequest) error {
	if req.AmountBaseUnits == 0 {
		return fmt.Errorf("construct: amount must be positive")
	}
	if req.Kind == payments.KindToken && req.TokenMint == "" {
		return fmt.Errorf("construct: token payment requires a token mint")
	}
	return nil
}

func nativeInstructions(ctx context.Context, checker AccountInfoChecker, payer, recipient, reference common.PublicKey, amount uint64) ([]types.Instruction, error) {
	bal, err := checker.GetBalance(ctx, payer.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("construct: checking payer balance: %w", err)
	}
	if bal < amount {
		return nil, ErrInsufficientBalance
	}

	ix := system.Transfer(system.TransferParam{
		From:   payer,
		To:     recipient,
		Amount: amount,
	})
	ix.Accounts = append(ix.Accounts, types.AccountMeta{
		PubKey:     reference,
		IsSigner:   false,
		IsWritable: false,
	})
	return []types.Instruction{ix}, nil
}

func tokenInstructions(ctx context.Context, checker AccountInfoChecker, payer, recipient, reference common.PublicKey, req TransferRequest) ([]types.Instruction, error) {
	mint := common.PublicKeyFromString(req.TokenMint)

	mintExists, mintOwner, err := checker.AccountInfo(ctx, mint.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("construct: checking mint: %w", err)
	}
	if !mintExists || mintOwner != tokenProgramID {
		return nil, ErrTokenMintNotInitialized
	}

	recipientWalletExists, _, err := checker.AccountInfo(ctx, recipient.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("construct: checking recipient wallet: %w", err)
	}
	if !recipientWalletExists {
		return nil, ErrRecipientUninitialized
	}

	payerATA, _, err := common.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, fmt.Errorf("construct: deriving payer ATA: %w", err)
	}
	recipientATA, _, err := common.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("construct: deriving recipient ATA: %w", err)
	}

	payerATAExists, payerATAOwner, err := checker.AccountInfo(ctx, payerATA.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("construct: checking payer ATA: %w", err)
	}
	if !payerATAExists {
		return nil, ErrInsufficientBalance
	}
	if payerATAOwner != tokenProgramID {
		return nil, ErrTokenAccountFrozen
	}

	var instructions []types.Instruction

	recipientATAExists, _, err := checker.AccountInfo(ctx, recipientATA.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("construct: checking recipient ATA: %w", err)
	}
	if !recipientATAExists {
		instructions = append(instructions, associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 payer,
			Owner:                  recipient,
			Mint:                   mint,
			AssociatedTokenAccount: recipientATA,
		}))
	}

	transferIx := token.TransferChecked(token.TransferCheckedParam{
		From:     payerATA,
		To:       recipientATA,
		Mint:     mint,
		Auth:     payer,
		Signers:  []common.PublicKey{},
		Amount:   req.AmountBaseUnits,
		Decimals: req.TokenDecimals,
	})
	transferIx.Accounts = append(transferIx.Accounts, types.AccountMeta{
		PubKey:     reference,
		IsSigner:   false,
		IsWritable: false,
	})
	instructions = append(instructions, transferIx)

	return instructions, nil
}
