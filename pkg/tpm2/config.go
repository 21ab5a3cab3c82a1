package tpm2

// Config describes the software PCR banks and the default credential
// protection digest, typically loaded from the platform configuration
// file.
type Config struct {
	Hash     string   `yaml:"hash" json:"hash" mapstructure:"hash"`
	NumPCRs  uint32   `yaml:"num-pcrs" json:"num_pcrs" mapstructure:"num-pcrs"`
	PCRBanks []string `yaml:"pcr-banks" json:"pcr_banks" mapstructure:"pcr-banks"`
}

// DefaultConfig returns the PC Client compatible defaults: 24 PCRs,
// SHA-1 and SHA-256 banks, SHA-256 credential protection.
func DefaultConfig() *Config {
	return &Config{
		Hash:     "sha256",
		NumPCRs:  defaultNumPCRs,
		PCRBanks: []string{"sha1", "sha256"},
	}
}

// NameAlg parses the configured credential protection digest.
func (config *Config) NameAlg() (DigestAlgorithm, error) {
	return ParseDigestAlgorithm(config.Hash)
}

// Extender builds a PCRExtender from the configured bank list.
func (config *Config) Extender() (*PCRExtender, error) {
	builder := NewPCRExtenderBuilder()
	if config.NumPCRs > 0 {
		builder.SetNumPCRs(config.NumPCRs)
	}
	for _, name := range config.PCRBanks {
		algo, err := ParseDigestAlgorithm(name)
		if err != nil {
			return nil, err
		}
		builder.AddDigestAlgorithm(algo)
	}
	return builder.Build(), nil
}
