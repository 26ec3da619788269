package hescheme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"regexp"
	"strconv"

	"github.com/Pro7ech/lattigo/he/heint"
	"github.com/Pro7ech/lattigo/he/hefloat"
)

// ConfigEnvVar names the environment variable holding the path to the
// scheme configuration file.
const ConfigEnvVar = "HE_CONFIG"

// rawConfig mirrors the JSON schema of §6 literally: field names are
// the wire key names, every field optional so missing-vs-zero can be
// told apart, and unknown keys are rejected by the decoder that parses
// into this struct (see parseConfig).
type rawConfig struct {
	SchemeName                      *string        `json:"scheme_name"`
	PolyModulusDegree                *int          `json:"poly_modulus_degree"`
	PlainModulus                     *uint64       `json:"plain_modulus"`
	SecurityLevel                    *int          `json:"security_level"`
	EvaluationDecompositionBitCount  *int          `json:"evaluation_decomposition_bit_count"`
	CoeffModulus                     map[string]int `json:"coeff_modulus"`
}

var smallModsKey = regexp.MustCompile(`^small_mods_(\d+)bit$`)

// Config is the parsed, validated scheme configuration: exactly one of
// BFV/CKKS is meaningful, selected by Kind.
type Config struct {
	Kind Kind
	BFV  heint.ParametersLiteral
	CKKS hefloat.ParametersLiteral
}

// LoadConfig reads and parses the file named by HE_CONFIG.
func LoadConfig() (Config, error) {
	path := os.Getenv(ConfigEnvVar)
	if path == "" {
		return Config{}, fmt.Errorf("hescheme: %s is not set", ConfigEnvVar)
	}
	return LoadConfigFile(path)
}

// LoadConfigFile reads and parses a config file at an explicit path,
// bypassing HE_CONFIG; LoadConfig calls it with the HE_CONFIG path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("hescheme: reading config %q: %w", path, err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawConfig
	if err := dec.Decode(&raw); err != nil {
		return Config{}, &SchemeParamError{Reason: fmt.Sprintf("unrecognized config: %v", err)}
	}

	if raw.SchemeName == nil {
		return Config{}, &SchemeParamError{Reason: "missing required key scheme_name"}
	}
	if raw.PolyModulusDegree == nil {
		return Config{}, &SchemeParamError{Reason: "missing required key poly_modulus_degree"}
	}
	if raw.SecurityLevel == nil {
		return Config{}, &SchemeParamError{Reason: "missing required key security_level"}
	}
	switch *raw.SecurityLevel {
	case 128, 192, 256:
	default:
		return Config{}, &SchemeParamError{Reason: fmt.Sprintf("invalid security_level %d", *raw.SecurityLevel)}
	}

	switch *raw.PolyModulusDegree {
	case 1024, 2048, 4096, 8192, 16384, 32768:
	default:
		return Config{}, &SchemeParamError{Reason: fmt.Sprintf("invalid poly_modulus_degree %d", *raw.PolyModulusDegree)}
	}
	logN := bits.Len(uint(*raw.PolyModulusDegree)) - 1

	logP, err := decompositionToLogP(raw.EvaluationDecompositionBitCount)
	if err != nil {
		return Config{}, err
	}

	switch *raw.SchemeName {
	case "BFV":
		if raw.PlainModulus == nil {
			return Config{}, &SchemeParamError{Reason: "BFV requires plain_modulus"}
		}
		if raw.CoeffModulus != nil {
			return Config{}, &SchemeParamError{Reason: "coeff_modulus is CKKS-only"}
		}
		return Config{
			Kind: BFV,
			BFV: heint.ParametersLiteral{
				LogN: logN,
				LogQ: defaultLogQ(logN),
				LogP: logP,
				T:    *raw.PlainModulus,
				R:    1,
			},
		}, nil

	case "CKKS":
		if raw.PlainModulus != nil {
			return Config{}, &SchemeParamError{Reason: "plain_modulus is BFV-only"}
		}
		logQ, err := coeffModulusToLogQ(raw.CoeffModulus)
		if err != nil {
			return Config{}, err
		}
		return Config{
			Kind: CKKS,
			CKKS: hefloat.ParametersLiteral{
				LogN:            logN,
				LogQ:            logQ,
				LogP:            logP,
				LogDefaultScale: 40,
			},
		}, nil

	default:
		return Config{}, &SchemeParamError{Reason: fmt.Sprintf("unknown scheme_name %q", *raw.SchemeName)}
	}
}

// decompositionToLogP turns the §6 evaluation_decomposition_bit_count
// knob into a single auxiliary modulus sized accordingly; a larger
// decomposition base needs a correspondingly larger P modulus for
// relinearization/rescale key-switching to stay correct.
func decompositionToLogP(bitCount *int) ([]int, error) {
	if bitCount == nil {
		return []int{61}, nil
	}
	if *bitCount < 1 || *bitCount > 60 {
		return nil, &SchemeParamError{Reason: fmt.Sprintf("invalid evaluation_decomposition_bit_count %d", *bitCount)}
	}
	return []int{*bitCount + 1}, nil
}

func defaultLogQ(logN int) []int {
	switch {
	case logN <= 11:
		return []int{40}
	case logN <= 13:
		return []int{45, 45}
	default:
		return []int{55, 45, 45, 45}
	}
}

// coeffModulusToLogQ expands a `{"small_mods_<N>bit": count}` map into
// a flat LogQ chain of `count` primes each of bit-size N, per §6's
// CKKS `coeff_modulus` schema.
func coeffModulusToLogQ(m map[string]int) ([]int, error) {
	if len(m) == 0 {
		return []int{55, 45, 45, 45}, nil
	}
	var logQ []int
	for key, count := range m {
		match := smallModsKey.FindStringSubmatch(key)
		if match == nil {
			return nil, &SchemeParamError{Reason: fmt.Sprintf("invalid coeff_modulus key %q", key)}
		}
		bitSize, _ := strconv.Atoi(match[1])
		switch bitSize {
		case 30, 40, 50, 60:
		default:
			return nil, &SchemeParamError{Reason: fmt.Sprintf("invalid coeff_modulus bit-size %d", bitSize)}
		}
		if count <= 0 {
			return nil, &SchemeParamError{Reason: fmt.Sprintf("invalid coeff_modulus count for %q", key)}
		}
		for i := 0; i < count; i++ {
			logQ = append(logQ, bitSize)
		}
	}
	return logQ, nil
}

// DefaultBFVLiteral is used when no HE_CONFIG file is supplied at all
// (§6: "fall back to defaults only when the whole config file is
// absent"), e.g. in tests and by cmd/heserver when HE_CONFIG is unset.
func DefaultBFVLiteral() heint.ParametersLiteral {
	return heint.ParametersLiteral{
		LogN: 12,
		LogQ: []int{45, 45},
		LogP: []int{61},
		T:    1 << 10,
		R:    1,
	}
}

// DefaultCKKSLiteral mirrors DefaultBFVLiteral for CKKS: N=1024-scale
// default per §4.4, widened slightly to leave room for a rescale.
func DefaultCKKSLiteral() hefloat.ParametersLiteral {
	return hefloat.ParametersLiteral{
		LogN:            10,
		LogQ:            []int{60, 30, 30, 30},
		LogP:            []int{61},
		LogDefaultScale: 30,
	}
}
