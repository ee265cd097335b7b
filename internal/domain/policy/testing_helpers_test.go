package policy

import "time"

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func validInput() FinalizeInput {
	return FinalizeInput{
		Registration:    "ab12 cde",
		Make:            "Ford",
		Model:           "Fiesta",
		Year:            2019,
		StartAt:         testStart.Format(time.RFC3339),
		EndAt:           testStart.Add(24 * time.Hour).Format(time.RFC3339),
		DurationMs:      (24 * time.Hour).Milliseconds(),
		PricePence:      2499,
		Currency:        "gbp",
		FirstName:       "Sam",
		LastName:        "Taylor",
		DateOfBirth:     "1990-05-01",
		Email:           "Sam.Taylor@example.com",
		LicenceType:     "FULL_UK",
		AddressLine1:    "1 High Street",
		City:            "Leeds",
		Postcode:        "ls1 1aa",
		PaymentProvider: PaymentProviderStripe,
		PaymentID:       "cs_test_123",
		PaymentStatus:   "paid",
	}
}
