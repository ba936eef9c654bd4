package types

// Config represents one account configuration. Every field is defaulted at
// load time and validated once before a run starts; the core never probes
// for missing keys.
type Config struct {
	// Meta information for the configuration
	Meta struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description,omitempty"`
		Enabled     bool   `yaml:"enabled"`
		Template    string `yaml:"template,omitempty"` // Name of the template to use
	} `yaml:"meta"`

	Mailbox struct {
		Protocol string `yaml:"protocol"` // "imap" or "pop3"
		Server   string `yaml:"server"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Folder   string `yaml:"folder"`
		Timeout  int    `yaml:"timeout"` // seconds, applied to every mailbox operation
		TLS      struct {
			Enabled    bool `yaml:"enabled"`
			VerifyCert bool `yaml:"verify_cert"`
		} `yaml:"tls"`
	} `yaml:"mailbox"`

	Filters struct {
		Senders         []string `yaml:"senders"`          // empty = any sender
		SubjectKeywords []string `yaml:"subject_keywords"` // empty = any subject
		DateRange       struct {
			Enabled bool   `yaml:"enabled"`
			Start   string `yaml:"start"` // YYYY-MM-DD, inclusive
			End     string `yaml:"end"`   // YYYY-MM-DD, inclusive
		} `yaml:"date_range"`
	} `yaml:"filters"`

	Download struct {
		BaseFolder        string   `yaml:"base_folder"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
		MaxSize           int64    `yaml:"max_size"`
		RenameFiles       bool     `yaml:"rename_files"`
		NamingPattern     string   `yaml:"naming_pattern"` // {date}{sender}{subject}{index}{original_name}
		FollowLinks       bool     `yaml:"follow_links"`   // fetch externally hosted files referenced in HTML
		FolderStructure   struct {
			ByDate     bool   `yaml:"by_date"`
			DateLayout string `yaml:"date_layout"` // "flat" (2006-01-02) or "nested" (2006/01/02)
			BySender   bool   `yaml:"by_sender"`
			BySubject  bool   `yaml:"by_subject"`
		} `yaml:"folder_structure"`
		Storage struct {
			Type            string `yaml:"type"`             // "file" or "gdrive"
			CredentialsFile string `yaml:"credentials_file"` // Google Drive service account JSON
			ParentFolderID  string `yaml:"parent_folder_id"` // Google Drive folder ID
		} `yaml:"storage"`
	} `yaml:"download"`

	Processing struct {
		MarkSeen    bool `yaml:"mark_seen"`
		MaxMessages int  `yaml:"max_messages"` // 0 = unlimited
		DelaySecs   int  `yaml:"delay_secs"`   // pause between messages
	} `yaml:"processing"`

	Report struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`

	ErrorLogging struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		RetentionDays int    `yaml:"retention_days"` // 0 = default 30
	} `yaml:"error_logging"`

	Logging struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"` // "text", "json" or "dev"
		IncludeCaller bool   `yaml:"include_caller"`
	} `yaml:"logging"`

	Scheduling struct {
		Enabled         bool   `yaml:"enabled"`
		FrequencyEvery  string `yaml:"frequency_every"` // minute, hour, day, week, month
		FrequencyAmount int    `yaml:"frequency_amount"`
		StartNow        bool   `yaml:"start_now"`
		StartAt         string `yaml:"start_at"` // UTC DateTime
		StopAt          string `yaml:"stop_at"`  // UTC DateTime
	} `yaml:"scheduling"`
}
