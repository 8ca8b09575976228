package ollama

import "fmt"

func buildLanguagePrompt(text string) string {
	return `Identify the dominant language of the document.
Return strict JSON object {"language_code": "<ISO 639-1 code>"}.
No markdown, no extra keys.

Document:
` + text
}

func buildSentimentPrompt(text, languageCode string) string {
	return fmt.Sprintf(`Classify the overall sentiment of the %s document below.
Return strict JSON object {"sentiment": "POSITIVE" | "NEGATIVE" | "NEUTRAL" | "MIXED"}.
No markdown, no extra keys.

Document:
%s`, languageCode, text)
}

func buildEntitiesPrompt(text, languageCode string) string {
	return fmt.Sprintf(`List the named entities (people, organizations, locations, dates, titles) in the %s document below, in order of first appearance.
Return strict JSON object {"entities": [{"text": string, "type": string}]}.
Copy entity text exactly as written. No markdown, no extra keys.

Document:
%s`, languageCode, text)
}
