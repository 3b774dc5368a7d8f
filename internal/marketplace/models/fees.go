package models

import (
	"github.com/holiman/uint256"

	dErrors "agentmemory/pkg/domain-errors"
)

const bpsDenominator = 10_000

// Split is the three-way division of a purchase price. The amounts always
// sum exactly to the price: both fees round down and the creator takes the
// remainder, so rounding residue deliberately accrues to the creator and
// never to the platform or referrer.
type Split struct {
	PlatformFee   uint64
	CreatorAmount uint64
	ReferralFee   uint64
}

// ComputeSplit divides price according to the platform config. The referral
// cut applies only when a referrer is present. All intermediates are 256-bit
// so bps-times-price can never wrap before narrowing.
func ComputeSplit(price uint64, platformFeeBps, referralFeeBps uint16, hasReferrer bool) (Split, error) {
	denom := uint256.NewInt(bpsDenominator)
	wide := new(uint256.Int)

	wide.Mul(uint256.NewInt(price), uint256.NewInt(uint64(platformFeeBps)))
	platformFee, overflow := wide.Div(wide, denom).Uint64WithOverflow()
	if overflow {
		return Split{}, dErrors.New(dErrors.CodeArithmetic, "platform fee computation overflow")
	}

	var referralFee uint64
	if hasReferrer {
		wide.Mul(uint256.NewInt(price), uint256.NewInt(uint64(referralFeeBps)))
		referralFee, overflow = wide.Div(wide, denom).Uint64WithOverflow()
		if overflow {
			return Split{}, dErrors.New(dErrors.CodeArithmetic, "referral fee computation overflow")
		}
	}

	// Creator amount is computed by subtraction, never independently, so
	// the three parts reconstruct the price exactly.
	fees := platformFee + referralFee
	if fees > price {
		return Split{}, dErrors.New(dErrors.CodeArithmetic, "fees exceed price")
	}

	return Split{
		PlatformFee:   platformFee,
		CreatorAmount: price - fees,
		ReferralFee:   referralFee,
	}, nil
}
