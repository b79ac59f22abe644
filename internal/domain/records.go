package domain

import "github.com/lherron/pipeboard/internal/decode"

// The *FromRecord constructors fill the typed fields from a decoded record and
// keep the record itself, which is what the node encodes to.

func CategoryFromRecord(r decode.Record) Category {
	return Category{
		ID:        r.String("id"),
		Name:      r.String("name"),
		SortOrder: r.Number("sortOrder"),
		Fields:    r,
	}
}

func PipelineFromRecord(r decode.Record) Pipeline {
	return Pipeline{
		ID:         r.String("id"),
		CategoryID: r.String("categoryId"),
		Name:       r.String("name"),
		SortOrder:  r.Number("sortOrder"),
		Fields:     r,
	}
}

func ClientFromRecord(r decode.Record) Client {
	return Client{
		ID:         r.String("id"),
		PipelineID: r.String("pipelineId"),
		Name:       r.String("name"),
		Fields:     r,
	}
}

func ClientDataFromRecord(r decode.Record) ClientData {
	return ClientData{
		ID:       r.String("id"),
		ClientID: r.String("clientId"),
		Item:     r.String("item"),
		Fields:   r,
	}
}

func SectionFromRecord(r decode.Record) Section {
	return Section{
		ID:        r.String("id"),
		ClientID:  r.String("clientId"),
		Name:      r.String("name"),
		SortOrder: r.Number("sortOrder"),
		Fields:    r,
	}
}

func RequirementFromRecord(r decode.Record) Requirement {
	return Requirement{
		ID:        r.String("id"),
		SectionID: r.String("sectionId"),
		Name:      r.String("name"),
		Subname:   r.String("subname"),
		Priority:  r.String("priority"),
		Status:    r.String("status"),
		SortOrder: r.Number("sortOrder"),
		Fields:    r,
	}
}

func BulletFromRecord(r decode.Record) Bullet {
	return Bullet{
		ID:            r.String("id"),
		RequirementID: r.String("requirementId"),
		Text:          r.String("text"),
		SortOrder:     r.Number("sortOrder"),
		Fields:        r,
	}
}

func TechnologyFromRecord(r decode.Record) Technology {
	return Technology{
		ID:            r.String("id"),
		RequirementID: r.String("requirementId"),
		Name:          r.String("name"),
		Type:          r.String("type"),
		Stage:         r.String("stage"),
		Progress:      r.Number("progress"),
		Links:         r.Value("links"),
		Fields:        r,
	}
}

func SignoffFromRecord(r decode.Record) Signoff {
	return Signoff{
		ID:            r.String("id"),
		RequirementID: r.String("requirementId"),
		PersonName:    r.String("personName"),
		SignedAt:      r.String("signedAt"),
		Fields:        r,
	}
}

func DiagramFromRecord(r decode.Record) Diagram {
	return Diagram{
		ID:       r.String("id"),
		ClientID: r.String("clientId"),
		Data:     r.Value("data"),
		Fields:   r,
	}
}
