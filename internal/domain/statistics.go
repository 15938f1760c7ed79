package domain

// PercentileSet holds the non-exceedance percentiles reported per bucket.
type PercentileSet struct {
	Q0   float64
	Q10  float64
	Q30  float64
	Q50  float64
	Q70  float64
	Q90  float64
	Q100 float64
}

// ExceedanceSet holds values exceeded X% of the time.
type ExceedanceSet struct {
	P5  float64
	P10 float64
	P25 float64
	P50 float64
	P75 float64
	P90 float64
	P95 float64
}

// MonthlyStatistic summarizes one water month of an entity's primary signal
// across all simulated years.
// Natural key: (ScenarioID, EntityID, WaterMonth).
type MonthlyStatistic struct {
	ScenarioID string
	EntityID   string
	EntityKind EntityKind
	WaterMonth int // 1 = October ... 12 = September
	Signal     Signal
	Unit       Unit

	Mean        *float64
	CV          *float64
	Percentiles *PercentileSet
	Exceedance  *ExceedanceSet
	SampleCount int

	ShortageFrequencyPct *float64 // % of valid shortage samples > 0
	ShortageMean         *float64
	DemandMean           *float64
}

// PeriodSummary summarizes the whole period of record for an entity.
// Natural key: (ScenarioID, EntityID).
type PeriodSummary struct {
	ScenarioID string
	EntityID   string
	EntityKind EntityKind
	Signal     Signal
	Unit       Unit

	SimulationStartYear int
	SimulationEndYear   int
	TotalYears          int
	CompleteYears       int

	// Annual figures use the mean of annual means over complete water years.
	AnnualMean       *float64
	AnnualCV         *float64
	AnnualExceedance *ExceedanceSet

	CVAllMonths *float64
	CVApril     *float64
	CVSeptember *float64

	FloodPoolProbability           *float64
	DeadPoolProbability            *float64
	FloodPoolProbabilityDesignated *float64
	DeadPoolProbabilityDesignated  *float64

	AvgDelivery          *float64
	AvgShortage          *float64
	AvgDemand            *float64
	ReliabilityPct       *float64
	DemandMetPct         *float64
	ShortageFrequencyPct *float64

	// GroundwaterOnly marks entities whose surface delivery is null by definition.
	GroundwaterOnly bool
}
