package domain

// AnomalyFlag tags a single detection rule firing for one evaluation cycle.
// Flags are stateless and derived fresh on every sample.
type AnomalyFlag string

const (
	FlagRapidSignalChange   AnomalyFlag = "RAPID_SIGNAL_CHANGE"
	FlagFrequentTowerChange AnomalyFlag = "FREQUENT_TOWER_CHANGES"
	FlagTechnologyDowngrade AnomalyFlag = "TECHNOLOGY_DOWNGRADE"
	FlagEncryptionDowngrade AnomalyFlag = "ENCRYPTION_DOWNGRADE"
)

// FlagSet is the set of anomaly flags raised for one sample.
type FlagSet map[AnomalyFlag]bool

// Add marks a flag as raised.
func (f FlagSet) Add(flag AnomalyFlag) {
	f[flag] = true
}

// Has reports whether a flag was raised.
func (f FlagSet) Has(flag AnomalyFlag) bool {
	return f[flag]
}
