package kind

// T - which will be externally referenced as kind.T is the event type in the
// nostr protocol, the use of the capital T signifying type, consistent with Go
// idiom.
type T uint16

func (ki T) ToInt() int { return int(ki) }

const (
	// ProfileMetadata stores user profile data as a JSON object in content.
	ProfileMetadata T = 0
	// TextNote is a standard short text note of plain text.
	TextNote T = 1
	// Deletion requests removal of the events it references.
	Deletion T = 5
	// LongFormContent is an addressable markdown article identified by its
	// author and `d` tag.
	LongFormContent T = 30023
)

// Synced are the kinds mirrored into local content records.
var Synced = []T{TextNote, LongFormContent}

// IsSynced reports whether k is one of the mirrored kinds.
func (ki T) IsSynced() bool {
	for _, k := range Synced {
		if k == ki {
			return true
		}
	}
	return false
}

// IsAddressable reports whether events of this kind are replaced by their
// author and `d` tag.
func (ki T) IsAddressable() bool { return ki >= 30000 && ki < 40000 }
