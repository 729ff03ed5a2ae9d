package llm

import (
	"fmt"
	"strings"

	"edumind-service/internal/domain"
)

func buildQuizPrompt(req domain.GenerationRequest) string {
	switch req.QuizType {
	case domain.TypeTrueFalse:
		return buildTrueFalsePrompt(req)
	case domain.TypeFillIn:
		return buildFillInPrompt(req)
	default:
		return buildMCQPrompt(req)
	}
}

func buildMCQPrompt(req domain.GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate EXACTLY %d multiple-choice questions (MCQs) at %s difficulty level based on the following material: %s. ",
		req.NumQuestions, req.Difficulty, req.Material))
	sb.WriteString("Each MCQ MUST have EXACTLY one correct answer among four distinct options labeled a), b), c), and d). ")
	sb.WriteString("You MUST generate ONLY multiple-choice questions with four options and a single correct answer. ")
	sb.WriteString("Do NOT generate True/False, Fill-in-the-Blank, or questions with multiple correct answers. ")
	sb.WriteString("The answer MUST be a single letter: a, b, c, or d, with no additional text or description. ")
	sb.WriteString(fmt.Sprintf("If you cannot generate exactly %d valid MCQs, output 'Error: Unable to generate exact number of valid MCQs' and stop. ", req.NumQuestions))
	sb.WriteString("Each MCQ must be unique, cover different aspects of the material, and avoid repetition. ")
	sb.WriteString("Format each MCQ strictly as:\n")
	sb.WriteString("<number>. <question>\n")
	sb.WriteString("a) <option1>\n")
	sb.WriteString("b) <option2>\n")
	sb.WriteString("c) <option3>\n")
	sb.WriteString("d) <option4>\n")
	sb.WriteString("Answer: <a, b, c, or d>\n")
	sb.WriteString("Return only the formatted questions, with no additional text or comments.")
	return sb.String()
}

func buildTrueFalsePrompt(req domain.GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate exactly %d True/False questions at %s difficulty level based on the following material: %s. ",
		req.NumQuestions, req.Difficulty, req.Material))
	sb.WriteString(fmt.Sprintf("You MUST generate EXACTLY %d questions, numbered from 1 to %d, with no fewer and no more. ", req.NumQuestions, req.NumQuestions))
	sb.WriteString("ONLY generate True/False questions. Do NOT generate multiple-choice, fill-in-the-blank, or any other question types under any circumstances. ")
	sb.WriteString("Each question must be a statement with a True or False answer (e.g., 'Answer: True'). ")
	sb.WriteString("Ensure questions are diverse, cover different aspects of the material, and do not repeat or focus on the same topic excessively. ")
	sb.WriteString("If you cannot generate the exact number, output 'Error: Unable to generate exact number of questions' instead. ")
	sb.WriteString("Format each question as:\n")
	sb.WriteString("<number>. <statement>\n")
	sb.WriteString("Answer: <True or False>\n")
	sb.WriteString("Return only the questions in the specified format, with no additional text.")
	return sb.String()
}

func buildFillInPrompt(req domain.GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate exactly %d Fill-in-the-Blank questions at %s difficulty level based on the following material: %s. ",
		req.NumQuestions, req.Difficulty, req.Material))
	sb.WriteString(fmt.Sprintf("You MUST generate EXACTLY %d questions, numbered from 1 to %d, with no fewer and no more. ", req.NumQuestions, req.NumQuestions))
	sb.WriteString("ONLY generate Fill-in-the-Blank questions. Do NOT generate multiple-choice, true/false, or any other question types under any circumstances. ")
	sb.WriteString("Each question must be a sentence with a blank (_) and an answer that fits the blank (e.g., 'Answer: word'). ")
	sb.WriteString("Ensure questions are diverse, cover different aspects of the material, and do not repeat or focus on the same topic excessively. ")
	sb.WriteString("If you cannot generate the exact number, output 'Error: Unable to generate exact number of questions' instead. ")
	sb.WriteString("Format each question as:\n")
	sb.WriteString("<number>. <sentence with a blank> _____\n")
	sb.WriteString("Answer: <correct word/phrase>\n")
	sb.WriteString("Return only the questions in the specified format, with no additional text.")
	return sb.String()
}

func buildChatPrompt(question string) string {
	return "You are EduMind Chatbot, an AI assistant designed to help students learn and explore knowledge. " +
		"Answer the following question in a clear and concise manner: " + question
}

func buildSummaryPrompt(text string) string {
	return "You are EduMind Chatbot. Provide a detailed summary of the following text in exactly 2 paragraphs, totaling 300-400 words. " +
		"Focus on the main ideas, key details, and overall context, omitting minor details. Use natural paragraph breaks and ensure the summary is comprehensive. " +
		"Output only the summary with no additional text or explanations. Text to summarize: " + text
}
