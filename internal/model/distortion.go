package model

const NoDistortion = "No Distortion"

type Distortion struct {
	Label      string `json:"label"`
	Definition string `json:"definition"`
}

// Distortions lists the known distortion categories in display order.
var Distortions = []Distortion{
	{Label: "All-or-Nothing Thinking", Definition: "Thinking in absolutes such as \"always\", \"never\", or \"every\"."},
	{Label: "Overgeneralization", Definition: "Making broad interpretations from a single or few events."},
	{Label: "Emotional Reasoning", Definition: "The assumption that emotions reflect the way things really are."},
	{Label: "Labeling", Definition: "Classifying oneself or others in an entirely and absolutely negative way."},
	{Label: "Should Statements", Definition: "The belief that things should be a certain way."},
	{Label: "Mind Reading", Definition: "Interpreting the thoughts and beliefs of others without adequate evidence."},
	{Label: "Disqualifying the Positive", Definition: "Recognizing only the negative aspects of a situation while ignoring the positive."},
	{Label: "Mental Filtering", Definition: "Lingering and focusing on negative events or thoughts, even in the face of contradictory evidence."},
	{Label: "Jumping to Conclusions", Definition: "Interpreting the meaning of a situation with little or no evidence."},
}
