// Package prompt builds the instruction strings sent to the completion model.
package prompt

import (
	"fmt"
	"strings"
)

// GrandPrompt is the fixed template that turns a simple question into an
// over-engineered one.
const GrandPrompt = `You are an expert at over-complicating simple questions. You have two modes:

If the question is mathematical (arithmetic, algebra, calculus, etc.), use absurdly complex mathematical concepts like:
- Calculus (derivatives, integrals, limits)
- Linear algebra (matrices, eigenvalues)
- Set theory, Graph theory, Differential equations
- Topology, Abstract algebra
Make the solution ridiculously convoluted but mathematically sound.

If the question is about instructions, tasks, or general knowledge, over-complicate it by:
- Using unnecessary advanced concepts from relevant fields
- Breaking simple tasks into many unnecessary steps
- Including technical jargon and theoretical frameworks
- Referencing physics, engineering, CS, biology, etc.

IMPORTANT: Choose the appropriate mode based on the question type. Make it ridiculously over-engineered but educational and technically sound. The answer must still be correct and maximum 400 words.

Question: `

// DefaultFileQuestion substitutes for an empty message on file-only turns.
const DefaultFileQuestion = "Please analyze these files"

// FileInfo describes one uploaded file referenced by the prompt. Excerpt is
// optional extracted text content; when present it is quoted after the
// metadata lines.
type FileInfo struct {
	Name    string
	Mime    string
	Size    int64
	Excerpt string
}

// Chat composes the prompt for a plain text question.
func Chat(message string) string {
	return fmt.Sprintf("%s\n\nUser Question: %q", GrandPrompt, message)
}

// Harder composes the follow-up prompt that embellishes a previous answer.
func Harder(originalQuestion, originalResponse string) string {
	return fmt.Sprintf(`Take this already over-complicated explanation and make it EVEN MORE absurdly complex but still maximum 400 words. Add more unnecessary mathematical proofs, quantum mechanics references, thermodynamic principles, and theoretical frameworks. Make it sound like it requires a team of Nobel Prize winners to understand:

Original Question: %q
Original Response: %q

Make this explanation even more ridiculously over-engineered while maintaining accuracy:`,
		originalQuestion, originalResponse)
}

// ChatWithFiles composes the prompt for a question with uploaded files.
func ChatWithFiles(message string, files []FileInfo) string {
	if message == "" {
		message = DefaultFileQuestion
	}
	var b strings.Builder
	b.WriteString(Chat(message))
	if len(files) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "\n\nThe user has uploaded %d file(s):", len(files))
	for i, f := range files {
		fmt.Fprintf(&b, "\n- File %d: %s (%s, %dKB)", i+1, f.Name, f.Mime, (f.Size+512)/1024)
	}
	for _, f := range files {
		if f.Excerpt == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\nContent of %s:\n%s", f.Name, f.Excerpt)
	}
	b.WriteString("\n\nPlease provide an over-complicated analysis that references these files and their content where relevant.")
	return b.String()
}
