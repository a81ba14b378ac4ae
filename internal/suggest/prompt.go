package suggest

import (
	"strconv"
	"strings"
)

// Prompt is the provider independent instruction pair.
type Prompt struct {
	System string
	User   string
}

const systemPrompt = `You are a helpful assistant that suggests transaction amounts for an ATM. You will be given a user's last 3 transactions for a specific transaction type.

Your task is to return three sensible transaction amounts based on the provided history.

- If the transaction history is empty, you MUST return [500, 1000, 2000].
- If the transaction history is not empty, analyze the amounts and suggest three different round numbers close to the previous amounts, rounded to the nearest 500 or 1000. For example, if the history is [480, 510, 495] you could suggest [500, 1000, 1500]; if the history is [2100, 2200, 1900] you could suggest [1500, 2000, 2500]. DO NOT return [500, 1000, 2000] when there is a transaction history.

Answer with a JSON object of the form {"recommendedAmounts": [a, b, c]} and nothing else.`

// BuildPrompt renders the request into model instructions.
func BuildPrompt(req Request) Prompt {
	var b strings.Builder
	b.WriteString("Transaction Type: ")
	b.WriteString(string(req.Type))
	b.WriteString("\nTransaction History: ")
	b.WriteString(formatAmounts(req.History))
	if len(req.Previous) > 0 {
		b.WriteString("\n\nThe user has already seen the following suggestions: ")
		b.WriteString(formatAmounts(req.Previous))
		b.WriteString(". It is CRITICAL that you provide different suggestions this time. DO NOT repeat any of the previous suggestions.")
	}
	b.WriteString("\n\nReturn ONLY the three suggested amounts.")
	return Prompt{System: systemPrompt, User: b.String()}
}

func formatAmounts(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
