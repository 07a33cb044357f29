package av1rtp

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

// SessionParameters holds the AV1 codec parameters negotiated over SDP.
//
// The values are carried verbatim for downstream consumers; the wire codec
// itself never consults them.
type SessionParameters struct {
	SeqProfile  uint8
	SeqLevelIdx uint8
	SeqTier     uint8
}

// ApplyFmtpParameter stores one fmtp attribute into the session parameters.
//
// Recognized attributes are "profile", "level-idx" and "tier"; unknown
// attributes are ignored so new SDP extensions do not break negotiation.
// Splitting the fmtp line into attribute/value pairs is the caller's job.
func (p *SessionParameters) ApplyFmtpParameter(attr, value string) error {
	switch attr {
	case "profile", "level-idx", "tier":
	default:
		logrus.WithFields(logrus.Fields{
			"function":  "SessionParameters.ApplyFmtpParameter",
			"attribute": attr,
		}).Debug("Ignoring unknown fmtp attribute")
		return nil
	}

	v, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return fmt.Errorf("fmtp attribute %q: invalid value %q: %w", attr, value, err)
	}

	switch attr {
	case "profile":
		p.SeqProfile = uint8(v)
	case "level-idx":
		p.SeqLevelIdx = uint8(v)
	case "tier":
		p.SeqTier = uint8(v)
	}
	return nil
}
