package models

const (
	PageNumberRegex  = `page\s*(\d+)`
	ParagraphRegex   = `\n\s*\n`
	SentenceRegex    = `[.!?]`
	ContextSeparator = "\n\n"
	ThinkTag         = `(?s)<think>.*?</think>`
)

// fixed user-facing answers
const (
	NoRelevantInfo      = "No relevant information found in the document."
	MemoryApology       = "Sorry, I couldn't recall that properly."
	FinalApology        = "Sorry, the assistant could not generate an answer."
	NoDocumentMessage   = "No PDF uploaded yet. Please upload one first."
	NoReadableText      = "No readable text found in the PDF."
	UploadSuccess       = "PDF uploaded and processed successfully."
	SpecifyPageNumber   = "Please specify a page number."
	PageEmptyTemplate   = "Page %d is empty."
	PageRangeTemplate   = "Page %d is out of range (max page: %d)."
	PageFailedTemplate  = "Failed to extract text from page %d: %v"
	DocumentStatsFormat = "The document contains:\n- %d pages\n- %d words\n- %d sentences\n- %d paragraphs"
)

var (
	IntentPromptTemplate = `
You are an intelligent assistant.

Classify the user's question into one of the following intents:
- page stats
- page info
- document content
- summarization
- unknown

Question: %s

Only respond with a single intent label.
`

	MemoryCheckPromptTemplate = `
Does the following question depend on past conversation context?

Question: "%s"
Answer with "yes" or "no" only.
`

	MemoryPromptTemplate = `
You are a helpful assistant with memory.

Here is the previous conversation:
%s

Now answer this question using only the history above.

User: %s
Assistant:`

	FallbackPromptTemplate = `
You are a helpful assistant answering questions about a PDF.

Use only this context:
"""
%s
"""

Question: %s
Answer:`

	// AgentPromptTemplate takes tool descriptions, tool names, prior
	// conversation, the question and the scratchpad.
	AgentPromptTemplate = `Answer the following question about the uploaded document as best you can. You have access to the following tools:

%s

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question

Previous conversation:
%s

Begin!

Question: %s
Thought:%s`
)
