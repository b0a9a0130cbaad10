package zod

import (
	"slices"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tlipoca9/zodgen/validation"
)

// RatioTolerance is the absolute difference accepted when comparing image
// aspect ratios.
const RatioTolerance = 0.01

var imageMimes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/webp"}

// mimeTypes maps file extensions to MIME types.
var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"avif": "image/avif",
	"heic": "image/heic",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odt":  "application/vnd.oasis.opendocument.text",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"rtf":  "application/rtf",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "text/javascript",
	"json": "application/json",
	"xml":  "application/xml",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"7z":   "application/x-7z-compressed",
	"rar":  "application/vnd.rar",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"mp4":  "video/mp4",
	"mpeg": "video/mpeg",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
}

// MimeType returns the MIME type of a file extension.
func MimeType(ext string) (string, bool) {
	m, ok := mimeTypes[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))]
	return m, ok
}

// FileBuilder builds z.file() chains. Size bounds are given in kilobytes.
type FileBuilder struct {
	chain
	requiredMsg string
	typeMsg     string
	mimes       sets.Set[string]
	mimeOrder   []string
	mimeMsg     string
}

func NewFileBuilder() *FileBuilder {
	return &FileBuilder{mimes: sets.New[string]()}
}

// Mimes returns the accepted MIME types in insertion order.
func (b *FileBuilder) Mimes() []string { return slices.Clone(b.mimeOrder) }

func (b *FileBuilder) Apply(v validation.ResolvedValidation) bool {
	return applyRule(fileRules, b, v)
}

func (b *FileBuilder) Build() string {
	return b.render("z.file(" + errorOption(missingInput, b.requiredMsg, b.typeMsg) + ")")
}

// allow adds MIME types and re-renders the .mime() fragment.
func (b *FileBuilder) allow(msg string, mimes ...string) {
	for _, m := range mimes {
		if !b.mimes.Has(m) {
			b.mimes.Insert(m)
			b.mimeOrder = append(b.mimeOrder, m)
		}
	}
	if msg != "" {
		b.mimeMsg = msg
	}
	if len(b.mimeOrder) > 0 {
		b.ReplaceRule("mime", call("mime", QuoteList(b.mimeOrder), b.mimeMsg))
	}
}

var fileRules = merge(
	boundRules[*FileBuilder](1024, false),
	ruleTable[*FileBuilder]{
		"required": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			b.requiredMsg = v.Message
			return true
		},
		"filled": noop[*FileBuilder],
		"file": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			b.typeMsg = v.Message
			return true
		},
		"image": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			mimes := slices.Clone(imageMimes)
			for _, p := range v.StringParams() {
				if strings.EqualFold(p, "allow_svg") {
					mimes = append(mimes, "image/svg+xml")
				}
			}
			b.allow(v.Message, mimes...)
			return true
		},
		"mimes": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			var mimes []string
			for _, ext := range v.StringParams() {
				if m, ok := MimeType(ext); ok {
					mimes = append(mimes, m)
				}
			}
			if len(mimes) == 0 {
				return false
			}
			b.allow(v.Message, mimes...)
			return true
		},
		"mimetypes": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			mimes := v.StringParams()
			if len(mimes) == 0 {
				return false
			}
			b.allow(v.Message, mimes...)
			return true
		},
		"extensions": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			exts := v.StringParams()
			if len(exts) == 0 {
				return false
			}
			for i, e := range exts {
				exts[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			}
			b.ReplaceRule("extensions", refine("(file) => "+QuoteList(exts)+
				`.includes((file.name.split(".").pop() ?? "").toLowerCase())`, v.Message))
			return true
		},
		"size": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			n, ok := v.NumberParam(0)
			if !ok {
				return false
			}
			b.ReplaceRule("size", refine("(file) => file.size === "+num(n*1024), v.Message))
			return true
		},
		"dimensions": func(b *FileBuilder, v validation.ResolvedValidation) bool {
			cond := dimensionChecks(v.StringParams())
			if cond == "" {
				return false
			}
			b.ReplaceRule("dimensions", refine(`async (file) => {
    try {
      const img = await createImageBitmap(file);
      const w = img.width, h = img.height;
      return `+cond+`;
    } catch {
      return false;
    }
  }`, v.Message))
			return true
		},
	},
)

// dimensionChecks compiles dimensions constraints (min_width=100, ratio=3/2)
// into one boolean expression over w and h.
func dimensionChecks(params []string) string {
	var checks []string
	for _, p := range params {
		key, val, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if !numericDimension(val) {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "width":
			checks = append(checks, "w === "+val)
		case "height":
			checks = append(checks, "h === "+val)
		case "min_width":
			checks = append(checks, "w >= "+val)
		case "max_width":
			checks = append(checks, "w <= "+val)
		case "min_height":
			checks = append(checks, "h >= "+val)
		case "max_height":
			checks = append(checks, "h <= "+val)
		case "ratio":
			checks = append(checks, "Math.abs(w / h - "+ratioExpr(val)+") < "+num(RatioTolerance))
		case "min_ratio":
			checks = append(checks, "w / h >= "+ratioExpr(val)+" - "+num(RatioTolerance))
		case "max_ratio":
			checks = append(checks, "w / h <= "+ratioExpr(val)+" + "+num(RatioTolerance))
		}
	}
	return strings.Join(checks, " && ")
}

func numericDimension(val string) bool {
	a, c, ok := strings.Cut(val, "/")
	if _, err := strconv.ParseFloat(strings.TrimSpace(a), 64); err != nil {
		return false
	}
	if ok {
		_, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		return err == nil
	}
	return true
}

// ratioExpr renders 3/2 as (3 / 2) and plain numbers unchanged.
func ratioExpr(val string) string {
	if a, c, ok := strings.Cut(val, "/"); ok {
		return "(" + strings.TrimSpace(a) + " / " + strings.TrimSpace(c) + ")"
	}
	return val
}
