package sensors

type Celsius float64

type Probe struct {
	ID      uint16
	Reading Celsius
	History [2][4]float32
}

type Station struct {
	Probes  [3]Probe
	Samples []int32
	Name    string
	Enabled bool
	cache   int64
}

type notExported struct {
	X int
}
