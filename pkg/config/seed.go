package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML settings file used to bootstrap the in-memory stores.
//
//	azure:
//	  client_id: ...
//	  rest_api_endpoint: https://acct.restv2.westeurope.media.azure.net/api/
//	organizations:
//	  - organization: edX
//	    client_id: ...
//	videos:
//	  - video_id: 0c8a...
//	    client_video_id: intro.mp4
//	    status: file_complete
//	    courses: [course-v1:edX+DemoX+2024]
//	    subtitles: [{language: en, file_name: intro_en.vtt}]
//	blocks:
//	  - usage_id: block-v1:edX+DemoX+2024+type@azure_media_services+block@intro
//	    org: edX
//	    course_id: course-v1:edX+DemoX+2024
//	    fields: {video_url: "//acct.streaming.media.azure.net/loc/intro.ism/manifest"}
type Seed struct {
	Azure         AzureSettings `yaml:"azure"`
	Organizations []OrgSeed     `yaml:"organizations"`
	Videos        []VideoSeed   `yaml:"videos"`
	Blocks        []BlockSeed   `yaml:"blocks"`
}

type OrgSeed struct {
	Organization  string `yaml:"organization"`
	AzureSettings `yaml:",inline"`
}

type VideoSeed struct {
	VideoID       string         `yaml:"video_id"`
	ClientVideoID string         `yaml:"client_video_id"`
	Status        string         `yaml:"status"`
	Created       time.Time      `yaml:"created"`
	Courses       []string       `yaml:"courses"`
	Subtitles     []SubtitleSeed `yaml:"subtitles"`
}

type SubtitleSeed struct {
	Language string `yaml:"language"`
	FileName string `yaml:"file_name"`
}

type BlockSeed struct {
	UsageID  string         `yaml:"usage_id"`
	Org      string         `yaml:"org"`
	CourseID string         `yaml:"course_id"`
	Fields   map[string]any `yaml:"fields"`
}

// LoadSeed reads and parses a settings file.
func LoadSeed(path string) (Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	return ParseSeed(b)
}

func ParseSeed(b []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("parse settings: %w", err)
	}
	for i, o := range s.Organizations {
		if o.Organization == "" {
			return Seed{}, fmt.Errorf("parse settings: organizations[%d] has no organization", i)
		}
	}
	return s, nil
}
