package quant

// An Abundance is one feature's quantification within one sample.
type Abundance struct {
	Feature         string
	Length          float64
	EffectiveLength float64
	TPM             float64
	Count           float64
}
