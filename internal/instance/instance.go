// Package instance builds the public instance-metadata payload returned by GET / and embedded in every gateway Hello
// frame, grounded on original_source/todel/src/models/info.rs.
package instance

import "github.com/eludris-go/eludris/internal/config"

// Version is the reported Eludris-compatible version of this server.
const Version = "0.3.2"

// RateLimitInfo is the public shape of a plain rate limit.
type RateLimitInfo struct {
	ResetAfter uint32 `json:"reset_after"`
	Limit      uint32 `json:"limit"`
}

// FileRateLimitInfo is the public shape of an upload rate limit.
type FileRateLimitInfo struct {
	ResetAfter    uint32          `json:"reset_after"`
	Limit         uint32          `json:"limit"`
	FileSizeLimit config.FileSize `json:"file_size_limit"`
}

// OprishRateLimits is the public shape of every oprish endpoint's rate limit.
type OprishRateLimits struct {
	GetInstanceInfo         RateLimitInfo `json:"get_instance_info"`
	CreateMessage           RateLimitInfo `json:"create_message"`
	CreateUser              RateLimitInfo `json:"create_user"`
	VerifyUser              RateLimitInfo `json:"verify_user"`
	GetUser                 RateLimitInfo `json:"get_user"`
	GuestGetUser            RateLimitInfo `json:"guest_get_user"`
	UpdateUser              RateLimitInfo `json:"update_user"`
	UpdateProfile           RateLimitInfo `json:"update_profile"`
	DeleteUser              RateLimitInfo `json:"delete_user"`
	CreatePasswordResetCode RateLimitInfo `json:"create_password_reset_code"`
	ResetPassword           RateLimitInfo `json:"reset_password"`
	CreateSession           RateLimitInfo `json:"create_session"`
	GetSessions             RateLimitInfo `json:"get_sessions"`
	DeleteSession           RateLimitInfo `json:"delete_session"`
}

// EffisRateLimits is the public shape of every effis endpoint's rate limit.
type EffisRateLimits struct {
	Assets      FileRateLimitInfo `json:"assets"`
	Attachments FileRateLimitInfo `json:"attachments"`
	FetchFile   RateLimitInfo     `json:"fetch_file"`
}

// RateLimits is the public shape of the full instance rate-limit table, present only when requested.
type RateLimits struct {
	Oprish      OprishRateLimits `json:"oprish"`
	Pandemonium RateLimitInfo    `json:"pandemonium"`
	Effis       EffisRateLimits  `json:"effis"`
}

// Info is the public instance-metadata payload, matching the original's InstanceInfo.
type Info struct {
	InstanceName       string          `json:"instance_name"`
	Description        *string         `json:"description,omitempty"`
	Version            string          `json:"version"`
	MessageLimit       int             `json:"message_limit"`
	OprishURL          string          `json:"oprish_url"`
	PandemoniumURL     string          `json:"pandemonium_url"`
	EffisURL           string          `json:"effis_url"`
	FileSize           config.FileSize `json:"file_size"`
	AttachmentFileSize config.FileSize `json:"attachment_file_size"`
	EmailAddress       *string         `json:"email_address,omitempty"`
	RateLimits         *RateLimits     `json:"rate_limits,omitempty"`
}

// Build assembles Info from cfg, including the rate-limit table only when withRateLimits is set, matching the
// original's InstanceInfo::from_conf(conf, rate_limits).
func Build(cfg *config.Config, withRateLimits bool) Info {
	info := Info{
		InstanceName:       cfg.InstanceName,
		Version:            Version,
		MessageLimit:       cfg.Oprish.MessageLimit,
		OprishURL:          cfg.Oprish.URL,
		PandemoniumURL:     cfg.Pandemonium.URL,
		EffisURL:           cfg.Effis.URL,
		FileSize:           cfg.Effis.FileSize,
		AttachmentFileSize: cfg.Effis.AttachmentFileSize,
	}
	if cfg.Description != "" {
		d := cfg.Description
		info.Description = &d
	}
	if cfg.Email != nil {
		addr := cfg.Email.Address
		info.EmailAddress = &addr
	}
	if withRateLimits {
		rl := buildRateLimits(cfg)
		info.RateLimits = &rl
	}
	return info
}

func buildRateLimits(cfg *config.Config) RateLimits {
	o := cfg.Oprish.RateLimits
	e := cfg.Effis.RateLimits
	conv := func(r config.RateLimit) RateLimitInfo { return RateLimitInfo{ResetAfter: r.ResetAfter, Limit: r.Limit} }
	convFile := func(r config.FileRateLimit) FileRateLimitInfo {
		return FileRateLimitInfo{ResetAfter: r.ResetAfter, Limit: r.Limit, FileSizeLimit: r.FileSizeLimit}
	}
	return RateLimits{
		Oprish: OprishRateLimits{
			GetInstanceInfo:         conv(o.GetInstanceInfo),
			CreateMessage:           conv(o.CreateMessage),
			CreateUser:              conv(o.CreateUser),
			VerifyUser:              conv(o.VerifyUser),
			GetUser:                 conv(o.GetUser),
			GuestGetUser:            conv(o.GuestGetUser),
			UpdateUser:              conv(o.UpdateUser),
			UpdateProfile:           conv(o.UpdateProfile),
			DeleteUser:              conv(o.DeleteUser),
			CreatePasswordResetCode: conv(o.CreatePasswordResetCode),
			ResetPassword:           conv(o.ResetPassword),
			CreateSession:           conv(o.CreateSession),
			GetSessions:             conv(o.GetSessions),
			DeleteSession:           conv(o.DeleteSession),
		},
		Pandemonium: conv(cfg.Pandemonium.RateLimit),
		Effis: EffisRateLimits{
			Assets:      convFile(e.Assets),
			Attachments: convFile(e.Attachments),
			FetchFile:   conv(e.FetchFile),
		},
	}
}
