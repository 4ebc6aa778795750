package content

// Post is a blog post as stored in content/blog/<slug>/index.md.
type Post struct {
	Slug       string   `json:"slug" yaml:"slug"`
	Title      string   `json:"title" yaml:"title"`
	Date       string   `json:"date" yaml:"date"`
	Tags       []string `json:"tags" yaml:"tags"`
	Excerpt    string   `json:"excerpt" yaml:"excerpt"`
	Published  bool     `json:"published" yaml:"published"`
	Featured   bool     `json:"featured" yaml:"featured"`
	CoverImage string   `json:"coverImage,omitempty" yaml:"coverImage"`
	Content    string   `json:"content" yaml:"-"`
}

// Project is one record of content/projects.json.
type Project struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	LongDescription string       `json:"longDescription"`
	Image           string       `json:"image"`
	Category        string       `json:"category"`
	Technologies    []string     `json:"technologies"`
	Featured        bool         `json:"featured"`
	Links           ProjectLinks `json:"links"`
	Highlights      []string     `json:"highlights"`
	Date            string       `json:"date"`
}

// ProjectLinks holds optional external links; nil marshals as null.
type ProjectLinks struct {
	Live   *string `json:"live"`
	GitHub *string `json:"github"`
}

// RequiredPostFields must be present in every post's frontmatter.
var RequiredPostFields = []string{"title", "slug", "date", "tags", "excerpt", "published"}
