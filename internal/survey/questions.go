package survey

import (
	"fmt"
	"strings"
)

// QuestionKey identifies one step of the intake questionnaire.
type QuestionKey string

const (
	QuestionZEN           QuestionKey = "zen"
	QuestionTradeRepublic QuestionKey = "trade_republic"
	QuestionBitsa         QuestionKey = "bitsa"
	QuestionBBVA          QuestionKey = "bbva"
)

// Question pairs a key with the prompt shown to the user and the label used
// in the final summary.
type Question struct {
	Key    QuestionKey
	Prompt string
	Label  string
}

// questions is the fixed, ordered questionnaire. The reply keyboard offers
// Si/No but any text is accepted and stored verbatim.
var questions = []Question{
	{Key: QuestionZEN, Prompt: "Avete mai registrato un ZEN?", Label: "ZEN"},
	{Key: QuestionTradeRepublic, Prompt: "Avete mai registrato un Trade Republic?", Label: "Trade Republic"},
	{Key: QuestionBitsa, Prompt: "Avete mai registrato un Bitsa?", Label: "Bitsa"},
	{Key: QuestionBBVA, Prompt: "Avete mai registrato un BBVA?", Label: "BBVA"},
}

// Questions returns the ordered questionnaire.
func Questions() []Question {
	return questions
}

// YesNoLabels are the reply keyboard buttons offered with every question.
var YesNoLabels = []string{"Si", "No"}

// ClosingText is sent once the last answer arrives, before the summary.
const ClosingText = "Grazie! La domanda è stata elaborata. Il nostro responsabile vi contatterà al più presto 👌"

// FormatSummary renders the completed questionnaire in fixed question order,
// attributed to the user's display name.
func FormatSummary(displayName string, answers []Answer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Elenco delle registrazioni da %s:", displayName)
	byKey := make(map[QuestionKey]string, len(answers))
	for _, a := range answers {
		byKey[a.Key] = a.Text
	}
	for _, q := range questions {
		fmt.Fprintf(&b, "\n %s: %s", q.Label, byKey[q.Key])
	}
	return b.String()
}
