// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package parsers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/elmerbot/internal/discord"
)

// DefaultCurrencies are converted between, in table order.
var DefaultCurrencies = []string{"USD", "EUR", "GBP", "SGD", "CAD", "AUD", "DKK", "HKD", "NZD"}

// CurrencyParser answers "<amount> <currency>" mentions with a conversion
// table into every configured currency.
type CurrencyParser struct {
	rates   *RatesClient
	pattern *regexp.Regexp
}

// NewCurrencyParser builds the amount pattern from the client's currencies.
func NewCurrencyParser(rates *RatesClient) *CurrencyParser {
	codes := make([]string, len(rates.Currencies()))
	for i, c := range rates.Currencies() {
		codes[i] = regexp.QuoteMeta(c)
	}
	return &CurrencyParser{
		rates:   rates,
		pattern: regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s+(` + strings.Join(codes, "|") + `)`),
	}
}

func (p *CurrencyParser) Name() string { return "currency" }

func (p *CurrencyParser) Match(content string) bool {
	return p.pattern.MatchString(content)
}

// Handle converts the first amount found in the message.
func (p *CurrencyParser) Handle(ctx context.Context, msg *discord.Message, reply Responder) error {
	amount, unit, ok := p.parse(msg.Content)
	if !ok {
		return nil
	}

	rates, err := p.rates.Rates(ctx, unit)
	if err != nil {
		return err
	}

	_, err = reply.SendEmbed(ctx, msg.ChannelID, conversionEmbed(amount, unit, p.rates.Currencies(), rates))
	return err
}

// parse extracts the first amount and its upper-cased currency. A comma is
// read as the decimal separator.
func (p *CurrencyParser) parse(content string) (decimal.Decimal, string, bool) {
	m := p.pattern.FindStringSubmatch(content)
	if m == nil {
		return decimal.Decimal{}, "", false
	}
	amount, err := decimal.NewFromString(strings.TrimSuffix(strings.Replace(m[1], ",", ".", 1), "."))
	if err != nil {
		return decimal.Decimal{}, "", false
	}
	return amount, strings.ToUpper(m[2]), true
}

func conversionEmbed(amount decimal.Decimal, unit string, currencies []string, rates Rates) discord.Embed {
	embed := discord.Embed{
		Title:       fmt.Sprintf("%s %s", amount.StringFixed(2), unit),
		Description: "Currency Conversion Table",
		Color:       discord.ColorGreen,
		Fields:      make([]discord.EmbedField, 0, len(currencies)),
	}
	for _, cur := range currencies {
		value := "n/a"
		if rate, ok := rates[cur]; ok {
			value = amount.Mul(rate).StringFixed(2)
		}
		embed.Fields = append(embed.Fields, discord.EmbedField{Name: cur, Value: value, Inline: true})
	}
	return embed
}
