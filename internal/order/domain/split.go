package domain

// ComputeSplit divides a customer-paid total (minor units) between the
// platform and the creator. The platform fee is rounded to the nearest major
// currency unit; the creator's earnings absorb the rounding remainder, so
// earnings + fee always equals the paid amount.
func ComputeSplit(amount int64, platformFeePercent int) (creatorEarnings, platformFee int64) {
	if amount <= 0 || platformFeePercent <= 0 {
		return amount, 0
	}
	if platformFeePercent >= 100 {
		return 0, amount
	}

	raw := amount * int64(platformFeePercent)
	platformFee = ((raw + 5000) / 10000) * 100
	if platformFee > amount {
		platformFee = amount
	}
	creatorEarnings = amount - platformFee
	return creatorEarnings, platformFee
}
