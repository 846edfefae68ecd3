package ingest

import "encoding/json"

// envelope covers both server variants the upstream firehose is known to
// emit:
//
//	{"data": ["host1", "host2", ...]}
//	{"data": {"leaf_cert": {"all_domains": ["host1", ...]}}}
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type fullVariant struct {
	LeafCert struct {
		AllDomains []string `json:"all_domains"`
	} `json:"leaf_cert"`
}

// parseDomains extracts the list of subject names from one text frame.
// Any shape other than the two documented variants returns an error; the
// caller logs and skips, it never closes the connection.
func parseDomains(raw []byte) ([]string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	var domainsOnly []string
	if err := json.Unmarshal(env.Data, &domainsOnly); err == nil {
		return domainsOnly, nil
	}

	var full fullVariant
	if err := json.Unmarshal(env.Data, &full); err == nil && full.LeafCert.AllDomains != nil {
		return full.LeafCert.AllDomains, nil
	}

	return nil, errUnrecognizedShape
}
