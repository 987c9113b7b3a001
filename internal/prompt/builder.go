package prompt

import (
	"strings"
	"text/template"
)

// groundingTemplate instructs the model to answer strictly from the
// retrieved context. Rendering goes through text/template so a question
// or context containing placeholder-looking text cannot alter the
// substitution.
var groundingTemplate = template.Must(template.New("grounding").Parse(`
Compose a comprehensive reply to the user query using the context given to you.
Make sure to follow below rules:
1. Please refrain from inventing answers.
2. Refuse to answer any question outside of provided context.
3. Understand the content very carefully to answer questions

Use the following parameters to answer the question:
---------

CONTEXT:
{{.Context}}

QUESTION:
{{.Question}}
`))

// Build renders the grounding prompt for one turn.
func Build(question, context string) (string, error) {
	var out strings.Builder
	err := groundingTemplate.Execute(&out, struct {
		Question string
		Context  string
	}{Question: question, Context: context})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// JoinContext concatenates retrieved chunk contents in retrieval order.
// A blank line separates chunks so their boundaries stay visible to the
// model; total length is bounded only by the retrieval limit.
func JoinContext(contents []string) string {
	return strings.Join(contents, "\n\n")
}
