package scorer

// Feedback lines, in the order they can appear.
const (
	FeedbackSemanticLow    = "Consider adding more specific details to your prompt to better guide the AI toward your target response."
	FeedbackSemanticHigh   = "Excellent semantic accuracy! Your prompt effectively guided the AI to the desired meaning."
	FeedbackComplianceLow  = "Your prompt may be missing some constraints. Try being more explicit about requirements like word count, format, or required elements."
	FeedbackComplianceHigh = "Perfect task compliance! You clearly specified all requirements."
	FeedbackStyleLow       = "The AI's tone doesn't match your target style. Try adding phrases like 'in a professional tone' or 'write casually' to your prompt."
	FeedbackStyleHigh      = "Great style matching! The AI captured the desired tone perfectly."
	FeedbackEfficiencyLow  = "Your prompt might be too long or too short. Try to be concise but specific."
	FeedbackEfficiencyHigh = "Excellent efficiency! You achieved great results with a well-crafted prompt."
	FeedbackOutstanding    = "🎉 Outstanding performance! You're mastering the art of prompt engineering."
	FeedbackGreat          = "Great job! You're developing strong prompt engineering skills."
	FeedbackEncouragement  = "Good attempt! Keep practicing to improve your prompt engineering skills."
)

type threshold struct {
	low, high       float64
	lowMsg, highMsg string
}

// GenerateFeedback turns the scores into human-readable suggestions. The
// result is never empty.
func GenerateFeedback(semantic, compliance, style, efficiency, total float64) []string {
	dims := []struct {
		score float64
		threshold
	}{
		{semantic, threshold{70, 85, FeedbackSemanticLow, FeedbackSemanticHigh}},
		{compliance, threshold{80, 90, FeedbackComplianceLow, FeedbackComplianceHigh}},
		{style, threshold{70, 85, FeedbackStyleLow, FeedbackStyleHigh}},
		{efficiency, threshold{60, 80, FeedbackEfficiencyLow, FeedbackEfficiencyHigh}},
	}

	var feedback []string
	for _, d := range dims {
		switch {
		case d.score < d.low:
			feedback = append(feedback, d.lowMsg)
		case d.score > d.high:
			feedback = append(feedback, d.highMsg)
		}
	}

	switch {
	case total > 90:
		feedback = append(feedback, FeedbackOutstanding)
	case total > 80:
		feedback = append(feedback, FeedbackGreat)
	}

	if len(feedback) == 0 {
		feedback = append(feedback, FeedbackEncouragement)
	}
	return feedback
}
