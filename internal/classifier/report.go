package classifier

import (
	"fmt"
	"sort"
	"strings"
)

// LabelMetrics are the per-category evaluation scores.
type LabelMetrics struct {
	Label     string  `yaml:"label"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
	Support   int     `yaml:"support"`
}

// Report summarises a model's performance on held-out samples.
type Report struct {
	Labels      []LabelMetrics `yaml:"labels"`
	Accuracy    float64        `yaml:"accuracy"`
	MacroAvg    LabelMetrics   `yaml:"macro_avg"`
	WeightedAvg LabelMetrics   `yaml:"weighted_avg"`
	Support     int            `yaml:"support"`
}

// Evaluate predicts every sample and scores the predictions against the
// true categories. Labels that only appear as predictions are reported with
// zero support. Undefined ratios count as zero.
func Evaluate(p Predictor, samples []Sample) *Report {
	type counts struct{ tp, fp, fn, support int }
	byLabel := make(map[string]*counts)
	get := func(l string) *counts {
		c, ok := byLabel[l]
		if !ok {
			c = &counts{}
			byLabel[l] = c
		}
		return c
	}

	correct := 0
	for _, s := range samples {
		pred := p.Predict(s.Description)
		get(s.Category).support++
		if pred == s.Category {
			get(pred).tp++
			correct++
			continue
		}
		get(pred).fp++
		get(s.Category).fn++
	}

	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	r := &Report{Support: len(samples), MacroAvg: LabelMetrics{Label: "macro avg"}, WeightedAvg: LabelMetrics{Label: "weighted avg"}}
	for _, l := range labels {
		c := byLabel[l]
		m := LabelMetrics{
			Label:     l,
			Precision: ratio(c.tp, c.tp+c.fp),
			Recall:    ratio(c.tp, c.tp+c.fn),
			Support:   c.support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Labels = append(r.Labels, m)

		r.MacroAvg.Precision += m.Precision
		r.MacroAvg.Recall += m.Recall
		r.MacroAvg.F1 += m.F1
		w := float64(m.Support)
		r.WeightedAvg.Precision += w * m.Precision
		r.WeightedAvg.Recall += w * m.Recall
		r.WeightedAvg.F1 += w * m.F1
	}

	if n := float64(len(labels)); n > 0 {
		r.MacroAvg.Precision /= n
		r.MacroAvg.Recall /= n
		r.MacroAvg.F1 /= n
	}
	if total := float64(len(samples)); total > 0 {
		r.WeightedAvg.Precision /= total
		r.WeightedAvg.Recall /= total
		r.WeightedAvg.F1 /= total
		r.Accuracy = float64(correct) / total
	}
	r.MacroAvg.Support = len(samples)
	r.WeightedAvg.Support = len(samples)
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	width := len("weighted avg")
	for _, m := range r.Labels {
		if len(m.Label) > width {
			width = len(m.Label)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(m LabelMetrics) {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	for _, m := range r.Labels {
		row(m)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}
