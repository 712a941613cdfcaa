package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DocumentsCollection is the per-workspace subcollection of saved documents
const DocumentsCollection = "documents"

// documentDoc is the Firestore document representation of
// model.GeneratedDocument
type documentDoc struct {
	ID               model.DocumentID   `firestore:"ID"`
	DocumentType     types.DocumentType `firestore:"DocumentType"`
	Title            string             `firestore:"Title"`
	OrganizationName string             `firestore:"OrganizationName"`
	Field            string             `firestore:"Field"`
	Markdown         string             `firestore:"Markdown"`
	CreatedAt        time.Time          `firestore:"CreatedAt"`
}

func toDocumentDoc(d *model.GeneratedDocument) *documentDoc {
	return &documentDoc{
		ID:               d.ID,
		DocumentType:     d.DocumentType,
		Title:            d.Title,
		OrganizationName: d.OrganizationName,
		Field:            d.Field,
		Markdown:         d.Markdown,
		CreatedAt:        d.CreatedAt,
	}
}

func snapshotToDocument(workspaceID string, snap *firestore.DocumentSnapshot) (*model.GeneratedDocument, error) {
	var d documentDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return &model.GeneratedDocument{
		ID:               d.ID,
		WorkspaceID:      workspaceID,
		DocumentType:     d.DocumentType,
		Title:            d.Title,
		OrganizationName: d.OrganizationName,
		Field:            d.Field,
		Markdown:         d.Markdown,
		CreatedAt:        d.CreatedAt,
	}, nil
}

type documentRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newDocumentRepository(client *firestore.Client) *documentRepository {
	return &documentRepository{
		client: client,
	}
}

func (r *documentRepository) documentsCollection(workspaceID string) *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "workspaces").Doc(workspaceID).Collection(DocumentsCollection)
}

func (r *documentRepository) Create(ctx context.Context, workspaceID string, doc *model.GeneratedDocument) (*model.GeneratedDocument, error) {
	created := *doc
	if created.ID == "" {
		created.ID = model.NewDocumentID()
	}
	created.WorkspaceID = workspaceID
	created.CreatedAt = time.Now().UTC()

	docRef := r.documentsCollection(workspaceID).Doc(string(created.ID))
	if _, err := docRef.Create(ctx, toDocumentDoc(&created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrAlreadyExists, "document already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create document", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *documentRepository) Get(ctx context.Context, workspaceID string, id model.DocumentID) (*model.GeneratedDocument, error) {
	snap, err := r.documentsCollection(workspaceID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "document not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("id", id))
	}

	doc, err := snapshotToDocument(workspaceID, snap)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal document", goerr.V("id", id))
	}
	return doc, nil
}

func (r *documentRepository) List(ctx context.Context, workspaceID string, opts ...interfaces.ListDocumentOption) ([]*model.GeneratedDocument, int, error) {
	cfg := interfaces.BuildListDocumentConfig(opts...)

	query := r.documentsCollection(workspaceID).Query
	if t := cfg.DocumentType(); t != nil {
		query = query.Where("DocumentType", "==", string(*t))
	}

	total, err := countQuery(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	iter := query.
		OrderBy("CreatedAt", firestore.Desc).
		Offset(cfg.Offset()).
		Limit(cfg.Limit()).
		Documents(ctx)
	defer iter.Stop()

	docs := make([]*model.GeneratedDocument, 0, cfg.Limit())
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to iterate documents")
		}

		doc, err := snapshotToDocument(workspaceID, snap)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to unmarshal document", goerr.V("id", snap.Ref.ID))
		}
		docs = append(docs, doc)
	}

	return docs, total, nil
}

func countQuery(ctx context.Context, query firestore.Query) (int, error) {
	result, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count documents")
	}

	v, ok := result["total"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count aggregation result", goerr.V("result", result))
	}
	return int(v.GetIntegerValue()), nil
}

func (r *documentRepository) Delete(ctx context.Context, workspaceID string, id model.DocumentID) error {
	docRef := r.documentsCollection(workspaceID).Doc(string(id))
	if _, err := docRef.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "document not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete document", goerr.V("id", id))
	}
	return nil
}
