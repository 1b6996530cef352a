package validation

import (
	"strconv"
	"strings"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
)

// CardSummary is the only card data kept after validation.
type CardSummary struct {
	CardType string `json:"card_type"`
	LastFour string `json:"last_four"`
	Expiry   string `json:"expiry"`
}

// CheckCard validates card details against now and returns the storable summary.
func CheckCard(c models.CardDetails, now time.Time) (CardSummary, error) {
	var errs domain.ValidationErrors

	if strings.TrimSpace(c.HolderName) == "" {
		errs.Add("card_holder", "nama pemegang kartu wajib diisi")
	}

	number := strings.ReplaceAll(strings.TrimSpace(c.Number), " ", "")
	switch {
	case number == "":
		errs.Add("card_number", "nomor kartu wajib diisi")
	case !isDigits(number):
		errs.Add("card_number", "nomor kartu hanya boleh angka")
	case len(number) < 13 || len(number) > 19:
		errs.Add("card_number", "panjang nomor kartu harus 13-19 digit")
	case !Luhn(number):
		errs.Add("card_number", "nomor kartu tidak valid")
	}

	expiry := strings.TrimSpace(c.Expiry)
	if msg := checkExpiry(expiry, now); msg != "" {
		errs.Add("expiry_date", msg)
	}

	cvv := strings.TrimSpace(c.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || !isDigits(cvv) {
		errs.Add("cvv", "CVV harus 3-4 digit")
	}

	if err := errs.OrNil(); err != nil {
		return CardSummary{}, err
	}
	return CardSummary{
		CardType: CardType(number),
		LastFour: number[len(number)-4:],
		Expiry:   expiry,
	}, nil
}

func checkExpiry(expiry string, now time.Time) string {
	if len(expiry) != 5 || expiry[2] != '/' {
		return "format masa berlaku harus MM/YY"
	}
	month, err1 := strconv.Atoi(expiry[:2])
	year, err2 := strconv.Atoi(expiry[3:])
	if err1 != nil || err2 != nil {
		return "format masa berlaku harus MM/YY"
	}
	if month < 1 || month > 12 {
		return "bulan masa berlaku tidak valid"
	}
	year += 2000
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return "kartu sudah kedaluwarsa"
	}
	return ""
}

// Luhn reports whether a digit string passes the mod-10 checksum.
func Luhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// CardType guesses the network from the leading digits.
func CardType(number string) string {
	switch {
	case strings.HasPrefix(number, "4"):
		return "visa"
	case len(number) >= 2 && number[0] == '5' && number[1] >= '1' && number[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(number, "34"), strings.HasPrefix(number, "37"):
		return "amex"
	case strings.HasPrefix(number, "35"):
		return "jcb"
	default:
		return "unknown"
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
