package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Timetable API",
        "description": "Scheduling conflict resolution engine for weekly class schedules",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedule", "description": "Conflict checking, recurrence expansion, resolution and commits"},
        {"name": "Undo", "description": "Time-bounded undo of schedule mutations"},
        {"name": "Reference", "description": "Time slots, faculty, batches and subjects"},
        {"name": "Calendar", "description": "Holidays and exam periods"},
        {"name": "Export", "description": "Rendered timetable downloads"}
    ],
    "paths": {
        "/schedule/entries": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List scheduled entries",
                "parameters": [
                    {"name": "batchId", "in": "query", "type": "string"},
                    {"name": "facultyId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "dayOfWeek", "in": "query", "type": "string"},
                    {"name": "timeSlotId", "in": "query", "type": "string"},
                    {"name": "activeOnly", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/entries/{id}": {
            "put": {
                "tags": ["Schedule"],
                "summary": "Update entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "force", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEntryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicts detected"}
                }
            },
            "delete": {
                "tags": ["Schedule"],
                "summary": "Soft-delete entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deleted with undo handle", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/check": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Check a candidate entry for conflicts",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckConflictsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/expand": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Expand a recurrence rule into dated occurrences",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExpandRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/resolve": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Suggest conflict-free placements for a candidate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/commit": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Commit candidate entries, optionally expanding a recurrence rule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicts detected"}
                }
            }
        },
        "/undo/{id}": {
            "get": {
                "tags": ["Undo"],
                "summary": "Remaining countdown for a pending undo operation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Nothing to undo"}
                }
            },
            "post": {
                "tags": ["Undo"],
                "summary": "Execute a pending undo operation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Reverted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Nothing to undo"}
                }
            }
        },
        "/time-slots": {
            "get": {
                "tags": ["Reference"],
                "summary": "List time slots",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reference"],
                "summary": "Create time slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TimeSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/faculty": {
            "get": {
                "tags": ["Reference"],
                "summary": "List active faculty",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reference"],
                "summary": "Create faculty member",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FacultyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches": {
            "get": {
                "tags": ["Reference"],
                "summary": "List batches",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reference"],
                "summary": "Create batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/batches/{id}/timetable": {
            "get": {
                "tags": ["Export"],
                "summary": "Download the weekly timetable grid for a batch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        },
        "/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Get the academic calendar",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/holidays": {
            "post": {
                "tags": ["Calendar"],
                "summary": "Declare a holiday",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/HolidayRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/exam-periods": {
            "post": {
                "tags": ["Calendar"],
                "summary": "Declare an exam period",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExamPeriodRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CandidateEntry": {
            "type": "object",
            "properties": {
                "batchId": {"type": "string"},
                "subjectId": {"type": "string"},
                "facultyId": {"type": "string"},
                "timeSlotId": {"type": "string"},
                "dayOfWeek": {"type": "string"},
                "date": {"type": "string"},
                "kind": {"type": "string"},
                "priority": {"type": "integer"}
            },
            "required": ["batchId", "timeSlotId", "dayOfWeek"]
        },
        "CheckConflictsRequest": {
            "type": "object",
            "properties": {
                "entry": {"$ref": "#/definitions/CandidateEntry"},
                "allowUnassigned": {"type": "boolean"}
            },
            "required": ["entry"]
        },
        "RecurrenceRule": {
            "type": "object",
            "properties": {
                "pattern": {"type": "string", "enum": ["DAILY", "WEEKLY", "MONTHLY"]},
                "end_date": {"type": "string"},
                "occurrence_count": {"type": "integer"},
                "duration_hours": {"type": "number"},
                "until_term_end": {"type": "boolean"},
                "term_end": {"type": "string"}
            },
            "required": ["pattern"]
        },
        "ExpandRequest": {
            "type": "object",
            "properties": {
                "rule": {"$ref": "#/definitions/RecurrenceRule"},
                "startDate": {"type": "string"},
                "timeSlotId": {"type": "string"}
            },
            "required": ["rule", "startDate", "timeSlotId"]
        },
        "StrategyConfig": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["next_slot", "next_day", "alternative_faculty", "split_session", "reschedule_existing"]},
                "priority": {"type": "integer"},
                "params": {"type": "object"}
            },
            "required": ["kind"]
        },
        "ResolveRequest": {
            "type": "object",
            "properties": {
                "entry": {"$ref": "#/definitions/CandidateEntry"},
                "strategies": {"type": "array", "items": {"$ref": "#/definitions/StrategyConfig"}},
                "maxSolutions": {"type": "integer"}
            },
            "required": ["entry", "strategies"]
        },
        "CommitRequest": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/CandidateEntry"}},
                "rule": {"$ref": "#/definitions/RecurrenceRule"},
                "forceIgnoreConflicts": {"type": "boolean"}
            },
            "required": ["entries"]
        },
        "UpdateEntryRequest": {
            "type": "object",
            "properties": {
                "subject_id": {"type": "string"},
                "faculty_id": {"type": "string"},
                "time_slot_id": {"type": "string"},
                "day_of_week": {"type": "string"},
                "date": {"type": "string"},
                "priority": {"type": "integer"}
            },
            "required": ["subject_id", "faculty_id", "time_slot_id", "day_of_week"]
        },
        "TimeSlotRequest": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "start_minutes": {"type": "integer"},
                "end_minutes": {"type": "integer"},
                "sort_order": {"type": "integer"}
            },
            "required": ["label"]
        },
        "FacultyRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "department": {"type": "string"},
                "max_weekly_load": {"type": "integer"},
                "active": {"type": "boolean"}
            },
            "required": ["full_name", "department"]
        },
        "BatchRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "program": {"type": "string"},
                "semester": {"type": "integer"}
            },
            "required": ["name", "program"]
        },
        "HolidayRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "date": {"type": "string"}
            },
            "required": ["title", "date"]
        },
        "ExamPeriodRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            },
            "required": ["title", "start_date", "end_date"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
