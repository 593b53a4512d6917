package textclf

import (
	"fmt"
	"sort"
	"strings"
)

type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report mirrors a per-class precision/recall/F1 table.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Total       int            `json:"total"`
}

func Accuracy(truth, pred []string) float64 {
	if len(truth) == 0 {
		return 0
	}
	var hit int
	for i := range truth {
		if truth[i] == pred[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(truth))
}

// ClassificationReport scores pred against truth. Labels appearing in
// either slice get a row; undefined ratios count as 0.
func ClassificationReport(truth, pred []string) Report {
	labels := make(map[string]struct{})
	tp := make(map[string]int)
	predicted := make(map[string]int)
	support := make(map[string]int)
	for i := range truth {
		labels[truth[i]] = struct{}{}
		labels[pred[i]] = struct{}{}
		support[truth[i]]++
		predicted[pred[i]]++
		if truth[i] == pred[i] {
			tp[truth[i]]++
		}
	}
	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, l)
	}
	sort.Strings(names)

	rep := Report{Accuracy: Accuracy(truth, pred), Total: len(truth)}
	for _, l := range names {
		m := ClassMetrics{
			Label:     l,
			Precision: ratio(tp[l], predicted[l]),
			Recall:    ratio(tp[l], support[l]),
			Support:   support[l],
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.Classes = append(rep.Classes, m)
	}
	rep.MacroAvg = ClassMetrics{Label: "macro avg", Support: len(truth)}
	rep.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: len(truth)}
	if len(rep.Classes) == 0 {
		return rep
	}
	for _, m := range rep.Classes {
		rep.MacroAvg.Precision += m.Precision
		rep.MacroAvg.Recall += m.Recall
		rep.MacroAvg.F1 += m.F1
		if len(truth) > 0 {
			w := float64(m.Support) / float64(len(truth))
			rep.WeightedAvg.Precision += w * m.Precision
			rep.WeightedAvg.Recall += w * m.Recall
			rep.WeightedAvg.F1 += w * m.F1
		}
	}
	n := float64(len(rep.Classes))
	rep.MacroAvg.Precision /= n
	rep.MacroAvg.Recall /= n
	rep.MacroAvg.F1 /= n
	return rep
}

func MacroF1(truth, pred []string) float64 {
	return ClassificationReport(truth, pred).MacroAvg.F1
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (r Report) String() string {
	width := len("weighted avg")
	for _, m := range r.Classes {
		if len(m.Label) > width {
			width = len(m.Label)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "\n%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	for _, m := range []ClassMetrics{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	return b.String()
}
