package registry

import "fmt"

// Paragraph is one line of a rendered registry.
type Paragraph struct {
	Text     string
	Bold     bool
	Centered bool
	Heading  bool
}

// Paragraphs lays the report out as the ordered lines shared by all renderers.
// Header lines are bold and centered; body lines are plain and numbered.
func (r RegistryReport) Paragraphs() []Paragraph {
	out := []Paragraph{
		{Text: r.Title, Bold: true, Centered: true, Heading: true},
		{Text: r.PeriodLabel, Bold: true, Centered: true},
		{Text: r.SubscriberName, Bold: true, Centered: true},
		{},
	}
	for _, s := range r.Sections {
		for _, line := range s.lines() {
			out = append(out, Paragraph{Text: line})
		}
		out = append(out, Paragraph{})
	}
	for _, sig := range r.Signatures {
		out = append(out, Paragraph{Text: sig.Line()})
	}
	for _, line := range r.Closing {
		out = append(out, Paragraph{Text: line})
	}
	return out
}

func (s Section) lines() []string {
	var lines []string
	switch s.Utility {
	case UtilityElectricity:
		lines = append(lines, fmt.Sprintf("%d. Показания счетчика электроэнергии:", s.Number))
		lines = append(lines, s.readingLines()...)
		if s.ShowRatio {
			lines = append(lines,
				"   - коэффициент трансформации: "+FormatRatio(s.Ratio),
				fmt.Sprintf("   - итого потребление с учетом КТ: %s %s", FormatQuantity(s.AdjustedConsumption), s.Unit),
			)
		}
		lines = append(lines,
			fmt.Sprintf("%d. %s: %s %s", s.Number+1, s.Tariff.Label, blankShort, s.Tariff.Unit),
			fmt.Sprintf("   %s: %s %s", s.AmountDue.Label, blankLong, s.AmountDue.Unit),
		)
		if c := s.Capacity; c != nil {
			lines = append(lines,
				fmt.Sprintf("%d. %s: %s %s", c.Number, c.Tariff.Label, blankShort, c.Tariff.Unit),
				fmt.Sprintf("   %s: %s %s", c.Declared.Label, blankShort, c.Declared.Unit),
				fmt.Sprintf("   %s: %s %s", c.AmountDue.Label, blankShort, c.AmountDue.Unit),
				fmt.Sprintf("   %s: %s %s", c.TotalDue.Label, blankShort, c.TotalDue.Unit),
			)
		}
		return lines
	case UtilityWater:
		lines = append(lines, fmt.Sprintf("%d. Показания счетчика воды:", s.Number))
		lines = append(lines, s.readingLines()...)
	case UtilityWastewater:
		lines = append(lines,
			fmt.Sprintf("%d. Водоотведение:", s.Number),
			fmt.Sprintf("%s %s", FormatQuantity(s.Consumption), s.Unit),
		)
	case UtilityGas:
		lines = append(lines, fmt.Sprintf("%d. Показания счетчика газа:", s.Number))
		lines = append(lines, s.readingLines()...)
	}
	return append(lines,
		fmt.Sprintf("   %s: %s %s", s.Tariff.Label, blankShort, s.Tariff.Unit),
		fmt.Sprintf("   %s: %s %s", s.AmountDue.Label, blankLong, s.AmountDue.Unit),
	)
}

func (s Section) readingLines() []string {
	return []string{
		fmt.Sprintf("   - на начало периода: %s %s", FormatQuantity(s.Previous), s.Unit),
		fmt.Sprintf("   - на конец периода: %s %s", FormatQuantity(s.Current), s.Unit),
		fmt.Sprintf("   - итого потребление: %s %s", FormatQuantity(s.Consumption), s.Unit),
	}
}
