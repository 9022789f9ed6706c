package alerts

import (
	"fmt"
	"strings"
)

func pushTitle(rec *AlertRecord) string {
	if rec.IsExit() {
		return "WHALE EXITING POSITION"
	}
	return "WHALE ENTRY DETECTED"
}

func webhookTitle(rec *AlertRecord) string {
	if rec.IsExit() {
		return "WHALE SELLING"
	}
	return "WHALE BUYING"
}

func webhookTags(rec *AlertRecord) string {
	if rec.IsExit() {
		return "whale,sell,alert"
	}
	return "whale,buy,alert"
}

// priority follows the push server's 1-5 scale; exits are raised to high
func priority(rec *AlertRecord) int {
	if rec.IsExit() {
		return 4
	}
	return 3
}

// renderMessage is the plain text body shared by push and webhook deliveries
func renderMessage(rec *AlertRecord) string {
	market := rec.MarketTitle
	if market == "" {
		market = "Unknown"
	}

	lines := []string{
		"Platform: " + rec.Platform,
		"Market: " + market,
	}
	if rec.Outcome != "" {
		lines = append(lines, fmt.Sprintf("Action: %s %s", rec.Action, rec.Outcome))
	} else {
		lines = append(lines, "Action: "+rec.Action)
	}
	lines = append(lines,
		fmt.Sprintf("Amount: $%.2f", rec.Value),
		fmt.Sprintf("Price: $%.4f (%.1f%%)", rec.Price, rec.Price*100),
		fmt.Sprintf("Size: %.0f contracts", rec.Size),
	)
	if rec.WalletID != "" {
		lines = append(lines, "Wallet: "+rec.WalletShort())
	}

	if a := rec.Activity; a != nil {
		lines = append(lines,
			"",
			"Wallet Activity:",
			fmt.Sprintf("├─ Txns (1h): %d", a.TransactionsLastHour),
			fmt.Sprintf("├─ Txns (24h): %d", a.TransactionsLastDay),
			fmt.Sprintf("├─ Volume (1h): $%.2f", a.TotalValueHour),
			fmt.Sprintf("├─ Volume (24h): $%.2f", a.TotalValueDay),
			"└─ Status: "+a.Status(),
		)
	}

	if len(rec.Anomalies) > 0 {
		lines = append(lines, "", "Anomalies:")
		for _, a := range rec.Anomalies {
			lines = append(lines, "- "+a)
		}
	}

	return strings.Join(lines, "\n")
}
