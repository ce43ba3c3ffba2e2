package entities

import "testing"

func TestManifestEntry_URL(t *testing.T) {
	tests := []struct {
		name  string
		entry ManifestEntry
		want  string
	}{
		{
			name: "iceberg spark runtime",
			entry: ManifestEntry{
				Coordinate:        Coordinate{Group: "org.apache.iceberg", Name: "iceberg-spark-runtime-3.5_2.12", Version: "1.9.1"},
				RepositoryBaseURL: "https://repo1.maven.org/maven2",
			},
			want: "https://repo1.maven.org/maven2/org/apache/iceberg/iceberg-spark-runtime-3.5_2.12/1.9.1/iceberg-spark-runtime-3.5_2.12-1.9.1.jar",
		},
		{
			name: "trailing slash on repository",
			entry: ManifestEntry{
				Coordinate:        Coordinate{Group: "org.apache.flink", Name: "flink-s3-fs-hadoop", Version: "1.20.0"},
				RepositoryBaseURL: "https://repo1.maven.org/maven2/",
			},
			want: "https://repo1.maven.org/maven2/org/apache/flink/flink-s3-fs-hadoop/1.20.0/flink-s3-fs-hadoop-1.20.0.jar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.URL(); got != tt.want {
				t.Errorf("URL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManifestEntry_Filename(t *testing.T) {
	e := ManifestEntry{Coordinate: Coordinate{Group: "org.apache.hadoop", Name: "hadoop-client", Version: "3.3.6"}}
	if got := e.Filename(); got != "hadoop-client-3.3.6.jar" {
		t.Errorf("Filename() = %v, want hadoop-client-3.3.6.jar", got)
	}

	e.DestinationFilename = "hadoop.jar"
	if got := e.Filename(); got != "hadoop.jar" {
		t.Errorf("Filename() = %v, want hadoop.jar", got)
	}
}

func TestManifest_Validate(t *testing.T) {
	valid := ManifestEntry{
		Coordinate:        Coordinate{Group: "org.apache.iceberg", Name: "iceberg-aws-bundle", Version: "1.9.1"},
		RepositoryBaseURL: "https://repo1.maven.org/maven2",
	}

	tests := []struct {
		name    string
		entries []ManifestEntry
		wantErr bool
	}{
		{name: "valid", entries: []ManifestEntry{valid}},
		{name: "empty", entries: nil, wantErr: true},
		{
			name: "missing version",
			entries: []ManifestEntry{{
				Coordinate:        Coordinate{Group: "g", Name: "n"},
				RepositoryBaseURL: "https://repo",
			}},
			wantErr: true,
		},
		{
			name:    "missing repository",
			entries: []ManifestEntry{{Coordinate: valid.Coordinate}},
			wantErr: true,
		},
		{
			name: "filename with path",
			entries: []ManifestEntry{{
				Coordinate:          valid.Coordinate,
				RepositoryBaseURL:   valid.RepositoryBaseURL,
				DestinationFilename: "../escape.jar",
			}},
			wantErr: true,
		},
		{name: "duplicate filename", entries: []ManifestEntry{valid, valid}, wantErr: true},
		{
			name: "filename shadowing another entry's partial download",
			entries: []ManifestEntry{
				{Coordinate: valid.Coordinate, RepositoryBaseURL: valid.RepositoryBaseURL, DestinationFilename: "x.jar"},
				{
					Coordinate:          Coordinate{Group: "org.example", Name: "other", Version: "1.0"},
					RepositoryBaseURL:   valid.RepositoryBaseURL,
					DestinationFilename: "x.jar" + PartSuffix,
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{Name: "test", Entries: tt.entries}
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManifestEntry_ValidateFilename(t *testing.T) {
	coord := Coordinate{Group: "org.example", Name: "lib", Version: "1.0"}
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{filename: "", wantErr: false},
		{filename: "custom.jar", wantErr: false},
		{filename: "../escape.jar", wantErr: true},
		{filename: "sub/lib.jar", wantErr: true},
		{filename: `sub\lib.jar`, wantErr: true},
		{filename: ".", wantErr: true},
		{filename: "..", wantErr: true},
		{filename: "lib.jar.part", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			e := ManifestEntry{Coordinate: coord, DestinationFilename: tt.filename}
			err := e.ValidateFilename()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	if OutcomeDownloading.IsTerminal() || OutcomeUnknown.IsTerminal() {
		t.Error("Unknown and Downloading must not be terminal")
	}
	for _, o := range []Outcome{OutcomeAlreadyPresent, OutcomeDownloaded, OutcomeFailed} {
		if !o.IsTerminal() {
			t.Errorf("%v.IsTerminal() = false, want true", o)
		}
	}
	if OutcomeFailed.IsPresent() || !OutcomeDownloaded.IsPresent() {
		t.Error("IsPresent() mismatch")
	}
}
