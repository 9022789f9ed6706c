package kalshi

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/liamashdown/whalewatch/internal/trade"
)

// Tickers look like KXNHLGAME-26JAN08ANACAR-CAR (Carolina wins),
// KXNCAAFTOTAL-26JAN08MIAMISS-51 (over 51 points), KXHIGHNY-24DEC-T63
// (NYC high of 63F) or KXETHD-26JAN0818-T3109.99 (ETH price at expiry).

var assets = []struct{ code, name string }{
	{"ETH", "Ethereum (ETH)"},
	{"BTC", "Bitcoin (BTC)"},
	{"SOL", "Solana (SOL)"},
	{"SPX", "S&P 500"},
	{"TSLA", "Tesla"},
	{"AAPL", "Apple"},
	{"GOOGL", "Google"},
	{"META", "Meta"},
	{"AMZN", "Amazon"},
	{"MSFT", "Microsoft"},
	{"NVDA", "NVIDIA"},
	{"BRK", "Berkshire Hathaway"},
}

var sports = []struct {
	codes []string
	name  string
}{
	{[]string{"NFL"}, "NFL"},
	{[]string{"NBA"}, "NBA"},
	{[]string{"NHL"}, "NHL"},
	{[]string{"MLB"}, "MLB"},
	{[]string{"NCAAF", "CFB"}, "College Football"},
	{[]string{"NCAAB", "CBB"}, "College Basketball"},
	{[]string{"SOCCER"}, "Soccer"},
}

// DescribeTicker turns a Kalshi ticker and the taker's side into a short
// description of what the trade bets on. BUY is a YES position, SELL a NO.
// It always returns something, falling back to a generic YES/NO line.
func DescribeTicker(ticker string, side trade.Side) string {
	yes := side == trade.SideBuy
	t := strings.ToUpper(strings.TrimSpace(ticker))
	parts := strings.Split(t, "-")
	last := parts[len(parts)-1]

	if asset, ok := assetOf(t); ok && strings.HasPrefix(last, "T") {
		return fmt.Sprintf("%s %s $%s at expiry", asset, pick(yes, ">=", "<"), last[1:])
	}

	if strings.Contains(t, "TOTAL") && isDigits(last) {
		sport := sportOf(t, "Game")
		direction := pick(yes, "OVER", "UNDER")
		if away, home, ok := teams(parts); ok {
			return fmt.Sprintf("%s total %s %s | %s @ %s", sport, direction, last, away, home)
		}
		return fmt.Sprintf("%s total %s %s", sport, direction, last)
	}

	switch {
	case containsAny(t, "NHLGAME", "NFLGAME", "NBAGAME", "MLBGAME", "SOCCERGAME"):
		away, home, ok := teams(parts)
		if !ok {
			break
		}
		opponent := away
		if last == away {
			opponent = home
		}
		sport := sportOf(t, "Sports")
		if yes {
			return fmt.Sprintf("%s wins vs %s (%s)", last, opponent, sport)
		}
		return fmt.Sprintf("%s wins vs %s (%s)", opponent, last, sport)

	case strings.Contains(t, "SPREAD"):
		team, spread := splitSpread(last)
		if team == "" || spread == "" {
			break
		}
		sport := sportOf(t, "Sports")
		if yes {
			return fmt.Sprintf("%s: %s wins by %s or more (covers spread)", sport, team, spread)
		}
		return fmt.Sprintf("%s: %s loses or wins by less than %s (doesn't cover spread)", sport, team, spread)

	case containsAny(t, "TD", "SCORE", "POINTS"):
		if !isDigits(last) {
			break
		}
		prop := "goals/scores"
		switch {
		case strings.Contains(t, "TD"):
			prop = "touchdowns"
		case strings.Contains(t, "POINTS"):
			prop = "points"
		}
		return fmt.Sprintf("Player gets %s %s %s", pick(yes, ">=", "<"), last, prop)

	case containsAny(t, "HIGH", "LOW"):
		temp, ok := strings.CutPrefix(last, "T")
		if !ok {
			break
		}
		metric := pick(strings.Contains(t, "HIGH"), "high", "low")
		if place := locationOf(t); place != "" {
			return fmt.Sprintf("%s %s temp %s %s°F", place, metric, pick(yes, ">=", "<"), temp)
		}
		return fmt.Sprintf("%s temp %s %s°F", strings.ToUpper(metric[:1])+metric[1:], pick(yes, ">=", "<"), temp)

	case containsAny(t, "PRES", "SENATE", "HOUSE"):
		return fmt.Sprintf("%s %s", last, pick(yes, "wins election", "doesn't win election"))
	}

	if containsAny(t, "COMBO", "PARLAY", "MULTI") {
		return fmt.Sprintf("%s %s combo/parlay", pick(yes, "Wins", "Loses"), last)
	}

	if containsAny(t, "FIRST", "LAST", "ANYTIME") {
		timing := "anytime"
		switch {
		case strings.Contains(t, "FIRST"):
			timing = "first"
		case strings.Contains(t, "LAST"):
			timing = "last"
		}
		return fmt.Sprintf("%s %s %s TD", last, pick(yes, "scores", "doesn't score"), timing)
	}

	if containsAny(t, "TOP", "FINISH", "PLACE") {
		return fmt.Sprintf("%s %s", last, pick(yes, "finishes in position", "doesn't finish in position"))
	}

	for _, award := range []string{"OSCAR", "EMMY", "GRAMMY", "TONY"} {
		if strings.Contains(t, award) {
			name := award[:1] + strings.ToLower(award[1:])
			return fmt.Sprintf("%s: %s %s", name, last, pick(yes, "wins", "doesn't win"))
		}
	}

	if last != "" && len(last) <= 10 && isAlnum(last) {
		return fmt.Sprintf("%s %s", last, pick(yes, "happens", "doesn't happen"))
	}

	return pick(yes, "YES", "NO") + " - check market details"
}

func assetOf(ticker string) (string, bool) {
	for _, a := range assets {
		if strings.Contains(ticker, a.code) {
			return a.name, true
		}
	}
	return "", false
}

func sportOf(ticker, fallback string) string {
	for _, s := range sports {
		if containsAny(ticker, s.codes...) {
			return s.name
		}
	}
	return fallback
}

func locationOf(ticker string) string {
	switch {
	case strings.Contains(ticker, "NY"):
		return "NYC"
	case containsAny(ticker, "LA", "CAL"):
		return "LA"
	case strings.Contains(ticker, "CHI"):
		return "Chicago"
	case strings.Contains(ticker, "MIA"):
		return "Miami"
	case strings.Contains(ticker, "SEA"):
		return "Seattle"
	}
	return ""
}

// teams reads the away and home codes from the last six characters of the
// segment before the outcome, e.g. 26JAN08ANACAR -> ANA, CAR.
func teams(parts []string) (away, home string, ok bool) {
	if len(parts) < 3 {
		return "", "", false
	}
	seg := parts[len(parts)-2]
	if len(seg) < 6 {
		return "", "", false
	}
	codes := seg[len(seg)-6:]
	return codes[:3], codes[3:], true
}

// splitSpread separates BUF3, BUF-3.5 or BUF_N3 into team and spread value
func splitSpread(s string) (team, spread string) {
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if i < 0 {
		return s, ""
	}
	team = s[:i]
	var b strings.Builder
	for _, r := range s[i:] {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return team, strings.TrimLeft(b.String(), "-")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
