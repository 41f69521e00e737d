package registry

import "strings"

const (
	// ReportTitle is the bold heading of every registry.
	ReportTitle = "РЕЕСТР\nвозмещения затрат за потребление электроэнергии и воды"

	unitKWh     = "кВт·ч"
	unitCubic   = "м³"
	unitKW      = "кВт"
	blankShort  = "______________"
	blankLong   = "______________________"
	signatureLn = "/____________/"
)

// ClosingLines is the counter-signature block appended to every registry.
var ClosingLines = []string{
	"Согласовано:",
	"Арендатор ___________________/________________/",
}

// SignatureBlock is a signatory taken from settings.
type SignatureBlock struct {
	Position string `json:"position" yaml:"position"`
	Name     string `json:"name" yaml:"name"`
}

// Complete reports whether both position and name are set.
func (b SignatureBlock) Complete() bool {
	return strings.TrimSpace(b.Position) != "" && strings.TrimSpace(b.Name) != ""
}

// Line renders the block as it appears on the document.
func (b SignatureBlock) Line() string {
	return b.Position + " " + b.Name + "\t" + signatureLn
}

// BlankField is a value left empty for manual completion.
type BlankField struct {
	Label string
	Unit  string
}

// Section is the consumption block of one applicable utility.
type Section struct {
	Utility     Utility
	Number      int
	Unit        string
	Previous    float64
	Current     float64
	Consumption float64

	// Electricity only; ShowRatio is false when the ratio equals 1.
	Ratio               float64
	ShowRatio           bool
	AdjustedConsumption float64

	Tariff    BlankField
	AmountDue BlankField
	Capacity  *CapacityCharge
}

// CapacityCharge holds the declared-capacity placeholders of the electricity section.
type CapacityCharge struct {
	Number    int
	Tariff    BlankField
	Declared  BlankField
	AmountDue BlankField
	TotalDue  BlankField
}

// RegistryReport is the composed document for one subscriber and period.
type RegistryReport struct {
	Title          string
	Period         Period
	PeriodLabel    string
	SubscriberID   int64
	SubscriberName string
	Sections       []Section
	Signatures     []SignatureBlock
	Closing        []string
}

// Section returns the section for u, if the utility was applicable.
func (r RegistryReport) Section(u Utility) (Section, bool) {
	for _, s := range r.Sections {
		if s.Utility == u {
			return s, true
		}
	}
	return Section{}, false
}

// Compose builds the registry for sub. previous may be nil.
func Compose(sub Subscriber, period Period, current, previous *Reading, signatures []SignatureBlock) (RegistryReport, error) {
	if strings.TrimSpace(sub.Name) == "" {
		return RegistryReport{}, ErrEmptySubscriberName
	}
	if current == nil {
		return RegistryReport{}, ErrNilReading
	}

	report := RegistryReport{
		Title:          ReportTitle,
		Period:         period,
		PeriodLabel:    period.Label(),
		SubscriberID:   sub.ID,
		SubscriberName: sub.Name,
		Closing:        append([]string(nil), ClosingLines...),
	}

	for _, u := range Utilities {
		multiplier := 1.0
		if u == UtilityElectricity {
			multiplier = sub.Ratio()
		}
		delta := Compute(current.Value(u), previous.Value(u), multiplier)
		if !delta.Applicable {
			continue
		}
		report.Sections = append(report.Sections, newSection(u, delta, sub.Ratio()))
	}

	for _, sig := range signatures {
		if sig.Complete() {
			report.Signatures = append(report.Signatures, sig)
		}
	}
	return report, nil
}

func newSection(u Utility, delta ConsumptionDelta, ratio float64) Section {
	s := Section{
		Utility:     u,
		Unit:        unitCubic,
		Previous:    delta.PreviousValue,
		Current:     delta.CurrentValue,
		Consumption: delta.RawDelta,
		Tariff:      BlankField{Label: "Тариф", Unit: "руб./" + unitCubic},
		AmountDue:   BlankField{Label: "ИТОГО к оплате", Unit: "руб."},
	}
	switch u {
	case UtilityElectricity:
		s.Number = 1
		s.Unit = unitKWh
		s.Ratio = ratio
		s.ShowRatio = ratio != 1
		s.Tariff = BlankField{Label: "Тариф за потребленную электроэнергию", Unit: "руб./" + unitKWh}
		s.Capacity = &CapacityCharge{
			Number:    3,
			Tariff:    BlankField{Label: "Тариф за заявленную мощность", Unit: "руб./" + unitKW},
			Declared:  BlankField{Label: "Заявленная мощность", Unit: unitKW},
			AmountDue: BlankField{Label: "ИТОГО к оплате", Unit: "руб."},
			TotalDue:  BlankField{Label: "ВСЕГО к оплате (п.2 + п.3)", Unit: "руб."},
		}
	case UtilityWater:
		s.Number = 4
	case UtilityWastewater:
		s.Number = 5
	case UtilityGas:
		s.Number = 6
	}
	s.AdjustedConsumption = delta.AdjustedDelta
	return s
}
